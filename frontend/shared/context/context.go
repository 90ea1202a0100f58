package context

import (
	"context"

	"fridge/models"
)

type householdKey struct{}

func NewContextWithHousehold(ctx context.Context, household models.Household) context.Context {
	return context.WithValue(ctx, householdKey{}, household)
}

func GetHouseholdFromContext(ctx context.Context) (models.Household, bool) {
	h, ok := ctx.Value(householdKey{}).(models.Household)
	return h, ok
}
