package testutil

import (
	"context"

	"github.com/flexprice/planshift/internal/types"
)

// TestOperator is the actor recorded for calls made with SetupContext
const TestOperator = "operator_test"

func SetupContext() context.Context {
	return SetupContextAs(TestOperator)
}

// SetupContextAs returns a context acting as the given operator with a fresh request id
func SetupContextAs(operator string) context.Context {
	ctx := types.SetUserID(context.Background(), operator)
	return types.SetRequestID(ctx, types.GenerateUUIDWithPrefix("req"))
}
