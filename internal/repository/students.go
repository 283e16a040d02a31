package repository

import (
	"context"
	"database/sql"

	"github.com/Dan9191/studio-billing/internal/models"
)

const studentColumns = `id, user_id, name, email, monthly_fee, monthly_discount, active`

func scanStudent(row scanner) (*models.Student, error) {
	s := &models.Student{}
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Email, &s.MonthlyFee, &s.MonthlyDiscount, &s.Active); err != nil {
		return nil, err
	}
	return s, nil
}

// GetStudent retrieves a student by ID
func (r *Repository) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM studio.students WHERE id = $1`
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrStudentNotFound
	}
	if err != nil {
		return nil, wrap("get student", err)
	}
	return s, nil
}

// ListActiveStudents lists students that are billed every month
func (r *Repository) ListActiveStudents(ctx context.Context) ([]*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM studio.students WHERE active ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("list students", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, wrap("scan student", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate students", err)
	}
	return students, nil
}
