package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftloop/mailcore/internal/domain"
)

type sequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) domain.SequenceRepository {
	return &sequenceRepository{db: db}
}

const sequenceColumns = `id, name, COALESCE(description, ''), is_active, default_send_time, COALESCE(reply_to, ''), created_at, updated_at`

func scanSequence(row interface{ Scan(dest ...interface{}) error }) (*domain.Sequence, error) {
	var s domain.Sequence
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.DefaultSendTime, &s.ReplyTo, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sequenceRepository) CreateSequence(ctx context.Context, s *domain.Sequence) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequences (id, name, description, is_active, default_send_time, reply_to, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, s.ID, s.Name, nullString(s.Description), s.IsActive, s.DefaultSendTime, nullString(s.ReplyTo), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create sequence: %w", err)
	}
	return nil
}

func (r *sequenceRepository) UpdateSequence(ctx context.Context, s *domain.Sequence) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE sequences SET name = $1, description = $2, is_active = $3, default_send_time = $4, reply_to = $5, updated_at = $6
		WHERE id = $7
	`, s.Name, nullString(s.Description), s.IsActive, s.DefaultSendTime, nullString(s.ReplyTo), s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("update sequence: %w", err)
	}
	return nil
}

func (r *sequenceRepository) DeleteSequence(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sequences WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete sequence: %w", err)
	}
	return nil
}

func (r *sequenceRepository) GetSequence(ctx context.Context, id string) (*domain.Sequence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sequenceColumns+` FROM sequences WHERE id = $1`, id)
	s, err := scanSequence(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "sequence", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return s, nil
}

func (r *sequenceRepository) ListSequences(ctx context.Context) ([]*domain.Sequence, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sequenceColumns+` FROM sequences ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []*domain.Sequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sequence row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const stepColumns = `id, sequence_id, step_number, delay_days, COALESCE(delay_time, ''), delay_minutes, subject, content, COALESCE(template_id, ''), is_enabled`

func scanStep(row interface{ Scan(dest ...interface{}) error }) (*domain.SequenceStep, error) {
	var st domain.SequenceStep
	var delayMinutes sql.NullInt64
	err := row.Scan(&st.ID, &st.SequenceID, &st.StepNumber, &st.DelayDays, &st.DelayTime, &delayMinutes, &st.Subject, &st.Content, &st.TemplateID, &st.IsEnabled)
	if err != nil {
		return nil, err
	}
	if delayMinutes.Valid {
		v := int(delayMinutes.Int64)
		st.DelayMinutes = &v
	}
	return &st, nil
}

// ReplaceSteps performs the insert-disabled-then-flip sequence of spec.md
// §4.7: new steps are written with is_enabled = FALSE, the old steps are
// deleted, and the new steps are flipped to enabled, all inside one
// transaction so EnabledSteps (read by the scheduler) never observes a
// sequence with zero enabled steps mid-edit.
func (r *sequenceRepository) ReplaceSteps(ctx context.Context, sequenceID string, newSteps []*domain.SequenceStep) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace steps tx: %w", err)
	}
	defer tx.Rollback()

	stagingIDs := make([]string, len(newSteps))
	for i, st := range newSteps {
		id := uuid.New().String()
		stagingIDs[i] = id
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sequence_steps (id, sequence_id, step_number, delay_days, delay_time, delay_minutes, subject, content, template_id, is_enabled)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, FALSE)
		`, id, sequenceID, st.StepNumber, st.DelayDays, nullString(st.DelayTime), delayMinutesValue(st.DelayMinutes), st.Subject, st.Content, nullString(st.TemplateID))
		if err != nil {
			return fmt.Errorf("insert staged step %d: %w", st.StepNumber, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sequence_steps WHERE sequence_id = $1 AND id != ALL($2)`, sequenceID, pqStringArray(stagingIDs)); err != nil {
		return fmt.Errorf("delete old steps: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sequence_steps SET is_enabled = TRUE WHERE sequence_id = $1 AND id = ANY($2)`, sequenceID, pqStringArray(stagingIDs)); err != nil {
		return fmt.Errorf("enable staged steps: %w", err)
	}

	for i, id := range stagingIDs {
		newSteps[i].ID = id
		newSteps[i].IsEnabled = true
	}

	return tx.Commit()
}

func (r *sequenceRepository) EnabledSteps(ctx context.Context, sequenceID string) ([]*domain.SequenceStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepColumns+` FROM sequence_steps WHERE sequence_id = $1 AND is_enabled = TRUE ORDER BY step_number
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list enabled steps: %w", err)
	}
	defer rows.Close()

	var out []*domain.SequenceStep
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *sequenceRepository) CreateEnrollment(ctx context.Context, e *domain.SubscriberSequenceEnrollment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriber_sequence_enrollments (id, subscriber_id, sequence_id, current_step, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (subscriber_id, sequence_id) DO NOTHING
	`, e.ID, e.SubscriberID, e.SequenceID, e.CurrentStep, e.StartedAt, e.CompletedAt)
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (r *sequenceRepository) GetEnrollment(ctx context.Context, subscriberID, sequenceID string) (*domain.SubscriberSequenceEnrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subscriber_id, sequence_id, current_step, started_at, completed_at
		FROM subscriber_sequence_enrollments WHERE subscriber_id = $1 AND sequence_id = $2
	`, subscriberID, sequenceID)
	e, err := scanEnrollment(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "enrollment", ID: subscriberID + "/" + sequenceID}
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

func scanEnrollment(row interface{ Scan(dest ...interface{}) error }) (*domain.SubscriberSequenceEnrollment, error) {
	var e domain.SubscriberSequenceEnrollment
	if err := row.Scan(&e.ID, &e.SubscriberID, &e.SequenceID, &e.CurrentStep, &e.StartedAt, &e.CompletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *sequenceRepository) AdvanceEnrollment(ctx context.Context, enrollmentID string, newCurrentStep int, completedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriber_sequence_enrollments SET current_step = $1, completed_at = $2 WHERE id = $3
	`, newCurrentStep, completedAt, enrollmentID)
	if err != nil {
		return fmt.Errorf("advance enrollment: %w", err)
	}
	return nil
}

func (r *sequenceRepository) ListEnrollmentsBySequence(ctx context.Context, sequenceID string) ([]*domain.SubscriberSequenceEnrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subscriber_id, sequence_id, current_step, started_at, completed_at
		FROM subscriber_sequence_enrollments WHERE sequence_id = $1
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments by sequence: %w", err)
	}
	defer rows.Close()
	return scanEnrollmentRows(rows)
}

func (r *sequenceRepository) ListEnrollmentsBySubscriber(ctx context.Context, subscriberID string) ([]*domain.SubscriberSequenceEnrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subscriber_id, sequence_id, current_step, started_at, completed_at
		FROM subscriber_sequence_enrollments WHERE subscriber_id = $1
	`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments by subscriber: %w", err)
	}
	defer rows.Close()
	return scanEnrollmentRows(rows)
}

func scanEnrollmentRows(rows *sql.Rows) ([]*domain.SubscriberSequenceEnrollment, error) {
	var out []*domain.SubscriberSequenceEnrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DueStepCandidates implements Store query 4.1-(a): every active,
// not-yet-completed enrollment in an active sequence, joined to its
// subscriber and the next enabled step by step_number order after the
// enrollment's current_step. One row per enrollment — the smallest
// qualifying step_number wins via DISTINCT ON.
func (r *sequenceRepository) DueStepCandidates(ctx context.Context) ([]*domain.DueStepCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (e.id)
			e.id, e.subscriber_id, e.sequence_id, e.current_step, e.started_at, e.completed_at,
			sub.`+subscriberColumns+`,
			seq.`+sequenceColumns+`,
			st.`+stepColumns+`
		FROM subscriber_sequence_enrollments e
		JOIN subscribers sub ON sub.id = e.subscriber_id
		JOIN sequences seq ON seq.id = e.sequence_id
		JOIN sequence_steps st ON st.sequence_id = e.sequence_id AND st.is_enabled = TRUE AND st.step_number > e.current_step
		WHERE e.completed_at IS NULL AND sub.status = $1 AND seq.is_active = TRUE
		ORDER BY e.id, st.step_number ASC
	`, domain.SubscriberStatusActive)
	if err != nil {
		return nil, fmt.Errorf("query due step candidates: %w", err)
	}
	defer rows.Close()

	var out []*domain.DueStepCandidate
	for rows.Next() {
		var e domain.SubscriberSequenceEnrollment
		var sub domain.Subscriber
		var seq domain.Sequence
		var st domain.SequenceStep
		var delayMinutes sql.NullInt64

		err := rows.Scan(
			&e.ID, &e.SubscriberID, &e.SequenceID, &e.CurrentStep, &e.StartedAt, &e.CompletedAt,
			&sub.ID, &sub.Email, &sub.Name, &sub.Status, &sub.UnsubscribeToken, &sub.SubscribedAt, &sub.UnsubscribedAt, &sub.CreatedAt,
			&seq.ID, &seq.Name, &seq.Description, &seq.IsActive, &seq.DefaultSendTime, &seq.ReplyTo, &seq.CreatedAt, &seq.UpdatedAt,
			&st.ID, &st.SequenceID, &st.StepNumber, &st.DelayDays, &st.DelayTime, &delayMinutes, &st.Subject, &st.Content, &st.TemplateID, &st.IsEnabled,
		)
		if err != nil {
			return nil, fmt.Errorf("scan due step candidate: %w", err)
		}
		if delayMinutes.Valid {
			v := int(delayMinutes.Int64)
			st.DelayMinutes = &v
		}
		out = append(out, &domain.DueStepCandidate{Enrollment: &e, Subscriber: &sub, Sequence: &seq, Step: &st})
	}
	return out, rows.Err()
}

func (r *sequenceRepository) LatestSentAtForStep(ctx context.Context, enrollmentID string, stepNumber int) (*time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT dl.sent_at
		FROM delivery_logs dl
		JOIN subscriber_sequence_enrollments e ON e.subscriber_id = dl.subscriber_id AND e.sequence_id = dl.sequence_id
		JOIN sequence_steps st ON st.id = dl.sequence_step_id
		WHERE e.id = $1 AND st.step_number = $2
		ORDER BY dl.sent_at DESC
		LIMIT 1
	`, enrollmentID, stepNumber)

	var sentAt sql.NullTime
	if err := row.Scan(&sentAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest sent_at for step: %w", err)
	}
	if !sentAt.Valid {
		return nil, nil
	}
	return &sentAt.Time, nil
}

func delayMinutesValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
