package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"famledger/internal/database"
	"famledger/internal/models"
)

// CategoryRepository handles database operations for transaction categories
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// defaultCategories are the built-in shared categories seeded at startup.
var defaultCategories = []models.Category{
	{Name: "Salário", Type: models.TypeIncome},
	{Name: "Investimentos", Type: models.TypeIncome},
	{Name: "Outros rendimentos", Type: models.TypeIncome},
	{Name: "Alimentação", Type: models.TypeExpense},
	{Name: "Moradia", Type: models.TypeExpense},
	{Name: "Transporte", Type: models.TypeExpense},
	{Name: "Saúde", Type: models.TypeExpense},
	{Name: "Educação", Type: models.TypeExpense},
	{Name: "Lazer", Type: models.TypeExpense},
	{Name: "Poupança", Type: models.TypeExpense},
	{Name: "Outros gastos", Type: models.TypeExpense},
}

// SeedDefaults inserts the built-in categories if they are not present yet
func (r *CategoryRepository) SeedDefaults() error {
	for _, c := range defaultCategories {
		var count int
		err := r.db.QueryRow(`SELECT COUNT(*) FROM categories WHERE name = ? AND user_id IS NULL`, c.Name).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check category %q: %w", c.Name, err)
		}
		if count > 0 {
			continue
		}
		_, err = r.db.Exec(`INSERT INTO categories (id, name, type, user_id) VALUES (?, ?, ?, NULL)`,
			uuid.New().String(), c.Name, string(c.Type))
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
	}
	return nil
}

// GetCategoryByID retrieves a category. Returns nil if not found.
func (r *CategoryRepository) GetCategoryByID(id string) (*models.Category, error) {
	query := `SELECT id, name, type, user_id FROM categories WHERE id = ?`
	c := &models.Category{}
	var catType string
	var userID sql.NullString
	err := r.db.QueryRow(query, id).Scan(&c.ID, &c.Name, &catType, &userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	c.Type = models.TransactionType(catType)
	c.UserID = userID.String
	return c, nil
}

// ListForUser retrieves the shared categories plus the user's own
func (r *CategoryRepository) ListForUser(userID string) ([]models.Category, error) {
	query := `SELECT id, name, type, user_id FROM categories WHERE user_id IS NULL OR user_id = ? ORDER BY type, name`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		var catType string
		var uid sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &catType, &uid); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Type = models.TransactionType(catType)
		c.UserID = uid.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
