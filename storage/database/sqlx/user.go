package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/user"
)

const userColumns = "id, name, username, email, is_active, role, password_hash, created_at, updated_at, last_login"

var userOrderings = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"role":       "role",
	"is_active":  "is_active",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	Role         string      `db:"role"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Role:         string(usr.Role),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Role:         user.Role(r.Role),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapUserErr maps psql "no rows" and unique violations to user errors.
func trapUserErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case "users_username_key":
			return user.ErrUsernameExists
		case "users_email_key":
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+userColumns+" FROM users"+
			" WHERE ((username = $1 AND $1 <> '') OR (email = $2 AND $2 <> ''))"+
			" AND id <> ALL($3::uuid[]) LIMIT 2",
		username, email, pq.Array(validUUIDs(ids)))
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES "+
			"(:id, :name, :username, :email, :is_active, :role, :password_hash, :created_at, :updated_at, :last_login)",
		toUserRow(usr))
	if err != nil {
		return user.User{}, trapUserErr(err, "inserting user")
	}
	return repo.GetByID(ctx, usr.ID)
}

func (repo *userRepository) Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var wb whereBuilder

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			wb.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", "%"+filter.Search+"%")
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, r := range filter.Roles {
				roles = append(roles, string(r))
			}
			wb.add("role = ANY(?)", pq.Array(roles))
		}
		if filter.IsActive != nil {
			wb.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			wb.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			wb.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	q := "SELECT " + userColumns + " FROM users" + wb.String() + orderBy(ordering, userOrderings, "created_at, id")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) getOne(ctx context.Context, cond string, arg interface{}) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, "SELECT "+userColumns+" FROM users WHERE "+cond+" LIMIT 1", arg); err != nil {
		return user.User{}, trapUserErr(err, "finding user")
	}
	return r.user(), nil
}

func (repo *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	if !isUUID(id) {
		return user.User{}, user.ErrNotFound
	}
	return repo.getOne(ctx, "id = $1", id)
}

func (repo *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getOne(ctx, "email = $1", email)
}

func (repo *userRepository) GetByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	if uname == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getOne(ctx, "(username = $1 OR email = $1)", uname)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", usr.LastLogin.UTC(), usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	if n, err := rowsAffected(res); err != nil {
		return user.User{}, err
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	if !isUUID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx,
		"UPDATE users SET name = :name, username = :username, email = :email, is_active = :is_active,"+
			" role = :role, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id",
		toUserRow(usr))
	if err != nil {
		return user.User{}, trapUserErr(err, "updating user")
	}
	if n, err := rowsAffected(res); err != nil {
		return user.User{}, err
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetByID(ctx, usr.ID)
}

func (repo *userRepository) Delete(ctx context.Context, ids ...string) error {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = ANY($1::uuid[])", pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}
