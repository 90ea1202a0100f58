package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/uptrace/bun"

	"fridge/models"
)

// SystemActor is recorded when no household is attached to the request.
const SystemActor = "system"

// Service writes audit records inside the caller transaction.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, actor, action, entityType, entityID string, before, after any) error {
	if strings.TrimSpace(actor) == "" {
		actor = SystemActor
	}
	beforeJSON, err := marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return err
	}
	log := &models.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
