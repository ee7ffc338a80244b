package vault

import (
	"context"
	"database/sql"
	"fmt"
)

// ─── MTG card item details ───────────────────────────────────────────────────

const detailColumns = `id, condition, finish, language, signed, altered, graded, grading_service, grade, created_at, updated_at`

// CreateMTGCardDetail validates and persists a detail record. The record is
// unowned until an item references it.
func (s *Store) CreateMTGCardDetail(ctx context.Context, p NewMTGCardDetail) (*MTGCardDetail, error) {
	var id string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.createDetailTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetMTGCardDetail(ctx, id)
}

func (s *Store) createDetailTx(ctx context.Context, tx *sql.Tx, p NewMTGCardDetail) (string, error) {
	id := newID(p.ID)
	applyDetailDefaults(&p)
	if err := validateDetail(string(p.Condition), string(p.Finish), p.Language); err != nil {
		return "", err
	}

	taken, err := rowExists(ctx, tx, "mtg_card_item_details", id)
	if err != nil {
		return "", fmt.Errorf("vault: check detail id: %w", err)
	}
	if taken {
		return "", newError(KindUniqueness, "id", "has already been taken")
	}

	if _, err := s.execHook(ctx, tx,
		`INSERT INTO mtg_card_item_details (id, condition, finish, language, signed, altered, graded, grading_service, grade)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(p.Condition), string(p.Finish), p.Language,
		boolToInt(p.Signed), boolToInt(p.Altered), boolToInt(p.Graded),
		nullableString(p.GradingService), nullableString(p.Grade),
	); err != nil {
		return "", mapConstraint(err, "id")
	}
	return id, nil
}

// GetMTGCardDetail retrieves a detail record by ID.
func (s *Store) GetMTGCardDetail(ctx context.Context, id string) (*MTGCardDetail, error) {
	return getDetail(ctx, s.db, id)
}

func getDetail(ctx context.Context, q querier, id string) (*MTGCardDetail, error) {
	row := q.QueryRowContext(ctx, `SELECT `+detailColumns+` FROM mtg_card_item_details WHERE id = ?`, id)
	var d MTGCardDetail
	var cond, finish string
	var signed, altered, graded int
	err := row.Scan(&d.ID, &cond, &finish, &d.Language, &signed, &altered, &graded,
		&d.GradingService, &d.Grade, &d.CreatedAt, &d.UpdatedAt)
	if isNoRows(err) {
		return nil, notFound("detail", id)
	}
	if err != nil {
		return nil, err
	}
	d.Condition = Condition(cond)
	d.Finish = Finish(finish)
	d.Signed, d.Altered, d.Graded = signed != 0, altered != 0, graded != 0
	return &d, nil
}

// UpdateMTGCardDetail partially updates a detail record.
func (s *Store) UpdateMTGCardDetail(ctx context.Context, id string, p MTGCardDetailUpdate) (*MTGCardDetail, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateDetailTx(ctx, tx, id, p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetMTGCardDetail(ctx, id)
}

func (s *Store) updateDetailTx(ctx context.Context, tx *sql.Tx, id string, p MTGCardDetailUpdate) error {
	d, err := getDetail(ctx, tx, id)
	if err != nil {
		return err
	}
	if p.Condition != nil {
		d.Condition = *p.Condition
	}
	if p.Finish != nil {
		d.Finish = *p.Finish
	}
	if p.Language != nil {
		d.Language = *p.Language
	}
	if p.Signed != nil {
		d.Signed = *p.Signed
	}
	if p.Altered != nil {
		d.Altered = *p.Altered
	}
	if p.Graded != nil {
		d.Graded = *p.Graded
	}
	if p.GradingService != nil {
		d.GradingService = nullableString(*p.GradingService)
	}
	if p.Grade != nil {
		d.Grade = nullableString(*p.Grade)
	}
	if err := validateDetail(string(d.Condition), string(d.Finish), d.Language); err != nil {
		return err
	}

	_, err = s.execHook(ctx, tx,
		`UPDATE mtg_card_item_details
		 SET condition = ?, finish = ?, language = ?, signed = ?, altered = ?, graded = ?,
		     grading_service = ?, grade = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		string(d.Condition), string(d.Finish), d.Language,
		boolToInt(d.Signed), boolToInt(d.Altered), boolToInt(d.Graded),
		d.GradingService, d.Grade, id)
	return err
}

func applyDetailDefaults(p *NewMTGCardDetail) {
	if p.Condition == "" {
		p.Condition = ConditionNM
	}
	if p.Finish == "" {
		p.Finish = FinishNonfoil
	}
	if p.Language == "" {
		p.Language = "EN"
	}
}

func validateDetail(condition, finish, language string) error {
	v := &validator{}
	v.oneOf("condition", condition, Conditions)
	v.oneOf("finish", finish, Finishes)
	v.oneOf("language", language, Languages)
	return v.err()
}
