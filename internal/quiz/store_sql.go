package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore implements Store on sqlite or postgres ($n placeholders work on
// both drivers).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func toMicro(t time.Time) int64   { return t.UTC().UnixMicro() }
func fromMicro(v int64) time.Time { return time.UnixMicro(v).UTC() }

func (s *SQLStore) CreateTest(ctx context.Context, t Test) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tests (id,owner,testname,testdescription,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Owner, t.Name, t.Description, toMicro(t.CreatedAt), toMicro(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}
	return nil
}

const testCols = `id,owner,testname,testdescription,created_at,updated_at`

func scanTest(row interface{ Scan(...any) error }) (Test, error) {
	var t Test
	var created, updated int64
	if err := row.Scan(&t.ID, &t.Owner, &t.Name, &t.Description, &created, &updated); err != nil {
		return Test{}, err
	}
	t.CreatedAt, t.UpdatedAt = fromMicro(created), fromMicro(updated)
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, owner, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+testCols+` FROM tests WHERE id=$1 AND owner=$2`, id, owner)
	t, err := scanTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) ListTests(ctx context.Context, owner string) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testCols+` FROM tests WHERE owner=$1 ORDER BY created_at ASC, id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateTest(ctx context.Context, t Test) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tests SET testname=$1, testdescription=$2, updated_at=$3 WHERE id=$4 AND owner=$5`,
		t.Name, t.Description, toMicro(t.UpdatedAt), t.ID, t.Owner)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLStore) DeleteTest(ctx context.Context, owner, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// foreign_keys is a per-connection pragma in sqlite; delete children explicitly.
	if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE test_id=$1 AND owner=$2`, id, owner); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE id=$1 AND owner=$2`, id, owner)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO questions
		(id,test_id,owner,questioncontent,correctanswer,answerexplanation,useranswer,score,feedback,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		q.ID, q.TestID, q.Owner, q.Content, q.CorrectAnswer, q.Explanation, q.UserAnswer,
		nullFloat(q.Score), q.Feedback, toMicro(q.CreatedAt), toMicro(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

const questionCols = `id,test_id,owner,questioncontent,correctanswer,answerexplanation,useranswer,score,feedback,created_at,updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	var score sql.NullFloat64
	var created, updated int64
	if err := row.Scan(&q.ID, &q.TestID, &q.Owner, &q.Content, &q.CorrectAnswer, &q.Explanation,
		&q.UserAnswer, &score, &q.Feedback, &created, &updated); err != nil {
		return Question{}, err
	}
	if score.Valid {
		v := score.Float64
		q.Score = &v
	}
	q.CreatedAt, q.UpdatedAt = fromMicro(created), fromMicro(updated)
	return q, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, owner, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1 AND owner=$2`, id, owner)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) ListQuestions(ctx context.Context, owner, testID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions
		WHERE test_id=$1 AND owner=$2 ORDER BY created_at ASC, id ASC`, testID, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateAnswer(ctx context.Context, q Question) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET useranswer=$1, score=$2, feedback=$3, updated_at=$4
		WHERE id=$5 AND owner=$6`,
		q.UserAnswer, nullFloat(q.Score), q.Feedback, toMicro(q.UpdatedAt), q.ID, q.Owner)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1 AND owner=$2`, id, owner)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
