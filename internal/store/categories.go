package store

import (
	"database/sql"
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
)

// CreateCategory inserts a new category and returns it.
func CreateCategory(q Queryer, name string) (*domain.Category, error) {
	id := NewID()
	_, err := q.Exec(`INSERT INTO categories (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	var cat domain.Category
	err = q.QueryRow(`SELECT id, name, created_at FROM categories WHERE id = ?`, id).
		Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return &cat, nil
}

// FindCategoryByName finds a category by exact name.
// Returns nil (no error) when nothing matches.
func FindCategoryByName(q Queryer, name string) (*domain.Category, error) {
	var cat domain.Category
	err := q.QueryRow(`SELECT id, name, created_at FROM categories WHERE name = ?`, name).
		Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	return &cat, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(q Queryer) ([]*domain.Category, error) {
	rows, err := q.Query(`SELECT id, name, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &cat)
	}
	return categories, rows.Err()
}

// CategoryNamesForProposition returns the sorted category names attached
// to a proposition.
func CategoryNamesForProposition(q Queryer, propositionID string) ([]string, error) {
	rows, err := q.Query(`
		SELECT c.name FROM categories c
		JOIN proposition_categories pc ON pc.category_id = c.id
		WHERE pc.proposition_id = ?
		ORDER BY c.name ASC
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposition categories: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CategoryIDsForProposition returns the category ids attached to a proposition.
func CategoryIDsForProposition(q Queryer, propositionID string) ([]string, error) {
	rows, err := q.Query(`
		SELECT category_id FROM proposition_categories WHERE proposition_id = ?
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposition category ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan category id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
