package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lunchmanager.io/lunchmanager/internal/domain"
	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
)

// PostgresStore implements Store on a shared pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// The (xmax = 0) projection distinguishes an insert from a conflict-update
// on the same statement: xmax is zero only for freshly inserted tuples.

func (s *PostgresStore) UpsertSchool(ctx context.Context, rec SchoolUpsert) (domain.School, bool, error) {
	var (
		school  domain.School
		created bool
	)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO schools (id, name, school_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, school_number = EXCLUDED.school_number, updated_at = now()
		RETURNING id, name, school_number, active, created_at, updated_at, (xmax = 0)
	`, rec.ID, rec.Name, rec.SchoolNumber)
	if err := row.Scan(&school.ID, &school.Name, &school.SchoolNumber,
		&school.Active, &school.CreatedAt, &school.UpdatedAt, &created); err != nil {
		return domain.School{}, false, fmt.Errorf("upsert school %d: %w", rec.ID, err)
	}
	return school, created, nil
}

func (s *PostgresStore) School(ctx context.Context, id int64) (domain.School, error) {
	var school domain.School
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, school_number, active, created_at, updated_at
		FROM schools
		WHERE id = $1
	`, id)
	err := row.Scan(&school.ID, &school.Name, &school.SchoolNumber,
		&school.Active, &school.CreatedAt, &school.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.School{}, apperrors.ErrSchoolNotFoundf(id)
	}
	if err != nil {
		return domain.School{}, fmt.Errorf("get school %d: %w", id, err)
	}
	return school, nil
}

func (s *PostgresStore) ListActiveSchools(ctx context.Context) ([]domain.School, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, school_number, active, created_at, updated_at
		FROM schools
		WHERE active = true
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list active schools: %w", err)
	}
	defer rows.Close()

	var schools []domain.School
	for rows.Next() {
		var school domain.School
		if err := rows.Scan(&school.ID, &school.Name, &school.SchoolNumber,
			&school.Active, &school.CreatedAt, &school.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		schools = append(schools, school)
	}
	return schools, rows.Err()
}

func (s *PostgresStore) UpsertGradeLevel(ctx context.Context, value int, schoolID int64) (domain.GradeLevel, bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.GradeLevel{}, false, fmt.Errorf("new grade id: %w", err)
	}

	var (
		grade   domain.GradeLevel
		created bool
	)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO grade_levels (id, value, school_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (value) DO UPDATE
		SET school_id = EXCLUDED.school_id, updated_at = now()
		RETURNING id::text, value, school_id, created_at, updated_at, (xmax = 0)
	`, id.String(), value, schoolID)
	if err := row.Scan(&grade.ID, &grade.Value, &grade.SchoolID,
		&grade.CreatedAt, &grade.UpdatedAt, &created); err != nil {
		return domain.GradeLevel{}, false, fmt.Errorf("upsert grade level %d: %w", value, err)
	}
	return grade, created, nil
}

func (s *PostgresStore) GradeLevelByValue(ctx context.Context, value int) (domain.GradeLevel, error) {
	var grade domain.GradeLevel
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, value, school_id, created_at, updated_at
		FROM grade_levels
		WHERE value = $1
	`, value)
	err := row.Scan(&grade.ID, &grade.Value, &grade.SchoolID, &grade.CreatedAt, &grade.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GradeLevel{}, apperrors.ErrGradeLevelNotFoundf(value)
	}
	if err != nil {
		return domain.GradeLevel{}, fmt.Errorf("get grade level %d: %w", value, err)
	}
	return grade, nil
}

const profileColumns = `
	id::text, role, first_name, last_name, user_dcid, student_dcid,
	school_id, grade_id::text, phone, room, active, user_number,
	account_id::text, last_sync`

func scanProfile(row pgx.Row, extra ...any) (domain.Profile, error) {
	var p domain.Profile
	dest := []any{
		&p.ID, &p.Role, &p.FirstName, &p.LastName, &p.StaffDCID, &p.StudentDCID,
		&p.SchoolID, &p.GradeID, &p.Phone, &p.Room, &p.Active, &p.UserNumber,
		&p.AccountID, &p.LastSync,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func (s *PostgresStore) UpsertStaffProfile(ctx context.Context, rec StaffProfileUpsert) (domain.Profile, bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("new profile id: %w", err)
	}

	var created bool
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, role, first_name, last_name, user_dcid, phone, room, active, user_number, last_sync)
		VALUES ($1, 'STAFF', $2, $3, $4, $5, $6, true, $7, $8)
		ON CONFLICT (user_dcid) DO UPDATE
		SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		    phone = EXCLUDED.phone, room = EXCLUDED.room, active = true,
		    user_number = EXCLUDED.user_number, last_sync = EXCLUDED.last_sync
		RETURNING `+profileColumns+`, (xmax = 0)
	`, id.String(), rec.FirstName, rec.LastName, rec.DCID, rec.Phone, rec.Room,
		rec.UserNumber, rec.LastSync)
	profile, err := scanProfile(row, &created)
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("upsert staff profile %d: %w", rec.DCID, err)
	}
	return profile, created, nil
}

func (s *PostgresStore) UpsertStudentProfile(ctx context.Context, rec StudentProfileUpsert) (domain.Profile, bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("new profile id: %w", err)
	}

	var created bool
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, role, first_name, last_name, student_dcid, school_id, grade_id, active, user_number, last_sync)
		VALUES ($1, 'STUDENT', $2, $3, $4, $5, $6, true, $7, $8)
		ON CONFLICT (student_dcid) DO UPDATE
		SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		    school_id = EXCLUDED.school_id, grade_id = EXCLUDED.grade_id,
		    active = true, user_number = EXCLUDED.user_number, last_sync = EXCLUDED.last_sync
		RETURNING `+profileColumns+`, (xmax = 0)
	`, id.String(), rec.FirstName, rec.LastName, rec.DCID, rec.SchoolID,
		rec.GradeID, rec.UserNumber, rec.LastSync)
	profile, err := scanProfile(row, &created)
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("upsert student profile %d: %w", rec.DCID, err)
	}
	return profile, created, nil
}

func (s *PostgresStore) StudentProfileByDCID(ctx context.Context, dcid int64) (domain.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE student_dcid = $1
	`, dcid)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, apperrors.ErrProfileNotFoundf(dcid)
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get student profile %d: %w", dcid, err)
	}
	return profile, nil
}

func (s *PostgresStore) SetProfileGrade(ctx context.Context, profileID string, gradeID *string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles SET grade_id = $1 WHERE id = $2
	`, gradeID, profileID)
	if err != nil {
		return fmt.Errorf("set profile grade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(apperrors.CodeProfileNotFound, "no profile for id")
	}
	return nil
}

func (s *PostgresStore) ReplaceRoster(ctx context.Context, staffProfileID string, studentProfileIDs []string) (RosterChange, error) {
	var change RosterChange

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return change, fmt.Errorf("begin roster replace: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT count(*) FROM roster_members WHERE staff_profile_id = $1
	`, staffProfileID)
	if err := row.Scan(&change.Before); err != nil {
		return change, fmt.Errorf("count roster members: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM roster_members WHERE staff_profile_id = $1
	`, staffProfileID); err != nil {
		return change, fmt.Errorf("clear roster: %w", err)
	}

	for _, studentID := range studentProfileIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO roster_members (staff_profile_id, student_profile_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, staffProfileID, studentID); err != nil {
			return change, fmt.Errorf("add roster member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return change, fmt.Errorf("commit roster replace: %w", err)
	}
	change.After = len(studentProfileIDs)
	return change, nil
}

func (s *PostgresStore) Roster(ctx context.Context, staffProfileID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT student_profile_id::text
		FROM roster_members
		WHERE staff_profile_id = $1
		ORDER BY student_profile_id
	`, staffProfileID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan roster member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Account(ctx context.Context, id string) (domain.UserAccount, error) {
	var acct domain.UserAccount
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, first_name, last_name, email, login, active, created_at, updated_at
		FROM user_accounts
		WHERE id = $1
	`, id)
	err := row.Scan(&acct.ID, &acct.FirstName, &acct.LastName, &acct.Email,
		&acct.Login, &acct.Active, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserAccount{}, apperrors.NotFound(apperrors.CodeAccountNotFound, "no account for id")
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return acct, nil
}

func (s *PostgresStore) FindOrCreateAccount(ctx context.Context, spec AccountSpec) (domain.UserAccount, bool, error) {
	var acct domain.UserAccount
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, first_name, last_name, email, login, active, created_at, updated_at
		FROM user_accounts
		WHERE first_name = $1 AND last_name = $2 AND email = $3 AND login = $4
		LIMIT 1
	`, spec.FirstName, spec.LastName, spec.Email, spec.Login)
	err := row.Scan(&acct.ID, &acct.FirstName, &acct.LastName, &acct.Email,
		&acct.Login, &acct.Active, &acct.CreatedAt, &acct.UpdatedAt)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.UserAccount{}, false, fmt.Errorf("find account %s: %w", spec.Login, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.UserAccount{}, false, fmt.Errorf("new account id: %w", err)
	}
	row = s.pool.QueryRow(ctx, `
		INSERT INTO user_accounts (id, first_name, last_name, email, login, password_hash, active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING id::text, first_name, last_name, email, login, active, created_at, updated_at
	`, id.String(), spec.FirstName, spec.LastName, spec.Email, spec.Login, spec.PasswordHash)
	if err := row.Scan(&acct.ID, &acct.FirstName, &acct.LastName, &acct.Email,
		&acct.Login, &acct.Active, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return domain.UserAccount{}, false, fmt.Errorf("create account %s: %w", spec.Login, err)
	}
	return acct, true, nil
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, upd AccountUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_accounts
		SET first_name = $1, last_name = $2, email = $3, login = $4, active = $5, updated_at = now()
		WHERE id = $6
	`, upd.FirstName, upd.LastName, upd.Email, upd.Login, upd.Active, upd.ID)
	if err != nil {
		return fmt.Errorf("update account %s: %w", upd.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(apperrors.CodeAccountNotFound, "no account for id")
	}
	return nil
}

func (s *PostgresStore) LinkAccount(ctx context.Context, profileID, accountID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles SET account_id = $1 WHERE id = $2
	`, accountID, profileID)
	if err != nil {
		return fmt.Errorf("link account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(apperrors.CodeProfileNotFound, "no profile for id")
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
