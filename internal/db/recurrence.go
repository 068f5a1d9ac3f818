package db

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

func (s *pgStore) CreateRecurrenceRule(ctx context.Context, description, rule string) (*model.RecurrenceRule, error) {
	var out model.RecurrenceRule
	const q = `
	INSERT INTO recurrence_rules (description, recurrence_rule, created_at)
	VALUES ($1, $2, now())
	RETURNING id, description, recurrence_rule, created_at;`
	if err := s.db.GetContext(ctx, &out, q, description, rule); err != nil {
		log.Error().Err(err).Msg("CreateRecurrenceRule failed")
		return nil, err
	}
	return &out, nil
}

func (s *pgStore) GetRecurrenceRule(ctx context.Context, id int) (*model.RecurrenceRule, error) {
	var out model.RecurrenceRule
	const q = `SELECT id, description, recurrence_rule, created_at FROM recurrence_rules WHERE id = $1;`
	if err := s.db.GetContext(ctx, &out, q, id); err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

func (s *pgStore) ListRecurrenceRules(ctx context.Context) ([]model.RecurrenceRule, error) {
	var out []model.RecurrenceRule
	const q = `SELECT id, description, recurrence_rule, created_at FROM recurrence_rules ORDER BY description, id;`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		log.Error().Err(err).Msg("ListRecurrenceRules failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) DeleteRecurrenceRule(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("rule_id", id).Msg("DeleteRecurrenceRule failed")
		return err
	}
	return requireRow(res)
}
