package dbhelper

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
)

const userColumns = `u.id, u.name, u.email, u.phone, u.password, u.address, u.is_active,
	u.total_orders, u.total_spent, u.loyalty_points, u.created_at, u.archived_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, asJSON(&u.Address), &u.IsActive,
		&u.TotalOrders, &u.TotalSpent, &u.LoyaltyPoints, &u.CreatedAt, &u.ArchivedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts the user with an already hashed password and fills in ID and CreatedAt.
func CreateUser(ctx context.Context, q Querier, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, phone, password, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING created_at`,
		user.ID, user.Name, strings.ToLower(user.Email), user.Phone, user.Password, asJSON(&user.Address)).
		Scan(&user.CreatedAt)
	if err != nil {
		return database.Classify(err)
	}
	user.IsActive = true
	return nil
}

func IsUserExists(ctx context.Context, q Querier, email string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL)`, email).
		Scan(&exists)
	return exists, database.Classify(err)
}

func AssignRole(ctx context.Context, q Querier, userID uuid.UUID, role models.Role) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) WHERE archived_at IS NULL DO NOTHING`, userID, role)
	return database.Classify(err)
}

// SetRoles replaces the active roles of a user.
func SetRoles(ctx context.Context, q Querier, userID uuid.UUID, roles []models.Role) error {
	_, err := q.ExecContext(ctx, `
		UPDATE user_roles SET archived_at = now()
		WHERE user_id = $1 AND archived_at IS NULL AND NOT (role = ANY($2))`,
		userID, pq.Array(models.RoleNames(roles)))
	if err != nil {
		return database.Classify(err)
	}
	for _, role := range roles {
		if err := AssignRole(ctx, q, userID, role); err != nil {
			return err
		}
	}
	return nil
}

func GetUserRoles(ctx context.Context, q Querier, userID uuid.UUID) ([]models.Role, error) {
	var names []string
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(array_agg(role ORDER BY role), '{}') FROM user_roles
		WHERE user_id = $1 AND archived_at IS NULL`, userID).
		Scan(pq.Array(&names))
	if err != nil {
		return nil, database.Classify(err)
	}
	return models.ParseRoles(names), nil
}

func HasRole(ctx context.Context, q Querier, userID uuid.UUID, role models.Role) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles
			WHERE user_id = $1 AND role = $2 AND archived_at IS NULL
		)`, userID, role).Scan(&exists)
	return exists, database.Classify(err)
}

// GetUserByEmail returns a non-archived user, including the password hash.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*models.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users u
		WHERE LOWER(u.email) = LOWER($1) AND u.archived_at IS NULL`, email))
	if err != nil {
		return nil, database.Classify(err)
	}
	if user.Roles, err = GetUserRoles(ctx, q, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserByID(ctx context.Context, q Querier, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users u
		WHERE u.id = $1 AND u.archived_at IS NULL`, id))
	if err != nil {
		return nil, database.Classify(err)
	}
	if user.Roles, err = GetUserRoles(ctx, q, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

type UserFilter struct {
	Role   models.Role
	Search string
	Page   Page
}

// ListUsers returns a page of non-archived users and the total number matching.
func ListUsers(ctx context.Context, q Querier, filter UserFilter) ([]models.User, int, error) {
	var a args
	where := []string{"u.archived_at IS NULL"}
	if filter.Role != "" {
		where = append(where, `EXISTS (SELECT 1 FROM user_roles ur
			WHERE ur.user_id = u.id AND ur.role = `+a.add(filter.Role)+` AND ur.archived_at IS NULL)`)
	}
	if filter.Search != "" {
		p := a.add("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(u.name ILIKE %s OR u.email ILIKE %s)", p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u WHERE `+cond, a...).Scan(&total); err != nil {
		return nil, 0, database.Classify(err)
	}

	page := filter.Page.normalize()
	query := `SELECT ` + userColumns + ` FROM users u WHERE ` + cond +
		` ORDER BY u.created_at DESC LIMIT ` + a.add(page.Limit) + ` OFFSET ` + a.add(page.Offset())
	rows, err := q.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	defer rows.Close()

	users := make([]models.User, 0, page.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, database.Classify(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.Classify(err)
	}
	for i := range users {
		if users[i].Roles, err = GetUserRoles(ctx, q, users[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return users, total, nil
}

func UpdateProfile(ctx context.Context, q Querier, id uuid.UUID, name, phone string, address models.Address) error {
	res, err := q.ExecContext(ctx, `
		UPDATE users SET name = $2, phone = $3, address = $4
		WHERE id = $1 AND archived_at IS NULL`, id, name, phone, asJSON(&address))
	return affectedOne(res, err, "user", id)
}

// ArchiveUser soft-deletes the user along with their roles.
func ArchiveUser(ctx context.Context, q Querier, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
		UPDATE users SET archived_at = now(), is_active = FALSE
		WHERE id = $1 AND archived_at IS NULL`, id)
	if err := affectedOne(res, err, "user", id); err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `UPDATE user_roles SET archived_at = now() WHERE user_id = $1 AND archived_at IS NULL`, id)
	return database.Classify(err)
}

// CreditOrder adds a placed order to the customer's running totals.
func CreditOrder(ctx context.Context, q Querier, userID uuid.UUID, total decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE users
		SET total_orders = total_orders + 1, total_spent = total_spent + $2, loyalty_points = loyalty_points + FLOOR($2)::int
		WHERE id = $1`, userID, total)
	return affectedOne(res, err, "user", userID)
}

func UserStats(ctx context.Context, q Querier, userID uuid.UUID) (models.UserStats, error) {
	stats := models.UserStats{Restaurants: []uuid.UUID{}}
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(ROUND(AVG(total), 2), 0)
		FROM orders WHERE customer_id = $1 AND status <> 'cancelled'`, userID).
		Scan(&stats.TotalOrders, &stats.TotalSpent, &stats.AverageOrderValue)
	if err != nil {
		return stats, database.Classify(err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT restaurant_id FROM orders
		WHERE customer_id = $1 AND status <> 'cancelled'
		GROUP BY restaurant_id ORDER BY COUNT(*) DESC, MAX(created_at) DESC LIMIT 5`, userID)
	if err != nil {
		return stats, database.Classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return stats, database.Classify(err)
		}
		stats.Restaurants = append(stats.Restaurants, id)
	}
	return stats, database.Classify(rows.Err())
}

func affectedOne(res sql.Result, err error, what string, id uuid.UUID) error {
	if err != nil {
		return database.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.Classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, apperr.ErrNotFound)
	}
	return nil
}
