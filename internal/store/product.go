package store

import (
	"database/sql"
	"errors"
	"time"
)

// Product represents a watch catalog entry.
type Product struct {
	ID          string
	Name        string
	Description string
	Brand       string
	Category    string
	Price       float64
	Image       string
	Stock       int
	Rating      float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter narrows a product listing. Zero values match everything.
type ProductFilter struct {
	// Search matches case-insensitively against name and description.
	Search string

	// Brand matches the brand column exactly.
	Brand string

	// Category matches the category column exactly.
	Category string

	// MinPrice and MaxPrice bound the price range; a zero MaxPrice means
	// no upper bound.
	MinPrice float64
	MaxPrice float64

	// SortBy selects the order column (name, price, rating, created_at);
	// anything else falls back to created_at. Ascending inverts the
	// default descending order.
	SortBy    string
	Ascending bool

	// Limit and Offset page the result; a zero Limit returns everything.
	Limit  int
	Offset int
}

// sortColumns maps the accepted SortBy values onto real column names so
// the ORDER BY clause is never built from caller input.
var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"rating":     "rating",
	"created_at": "created_at",
}

func (f ProductFilter) orderClause() string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.Ascending {
		direction = "ASC"
	}
	return " ORDER BY " + column + " " + direction
}

// ProductRepository provides CRUD operations for products.
type ProductRepository struct {
	db *sql.DB
}

// Products returns the product repository for this store.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{db: s.db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(p *Product) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO products (id, name, description, brand, category, price, image, stock, rating, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Brand, p.Category, p.Price, p.Image, p.Stock, p.Rating,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(id string) (*Product, error) {
	p := &Product{}

	err := r.db.QueryRow(
		`SELECT id, name, description, brand, category, price, image, stock, rating, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.Category, &p.Price, &p.Image, &p.Stock,
		&p.Rating, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return p, nil
}

// List retrieves products matching the filter, newest first unless the
// filter orders otherwise.
func (r *ProductRepository) List(filter ProductFilter) ([]*Product, error) {
	query := `SELECT id, name, description, brand, category, price, image, stock, rating, created_at, updated_at
		 FROM products WHERE 1=1`
	var args []any

	if filter.Search != "" {
		query += ` AND (name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Brand != "" {
		query += ` AND brand = ?`
		args = append(args, filter.Brand)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.MinPrice > 0 {
		query += ` AND price >= ?`
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query += ` AND price <= ?`
		args = append(args, filter.MaxPrice)
	}

	query += filter.orderClause()

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p := &Product{}
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.Category, &p.Price,
			&p.Image, &p.Stock, &p.Rating, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// Brands retrieves the distinct non-empty brand names in the catalog.
func (r *ProductRepository) Brands() ([]string, error) {
	return r.distinct("brand")
}

// Categories retrieves the distinct non-empty categories in the catalog.
func (r *ProductRepository) Categories() ([]string, error) {
	return r.distinct("category")
}

func (r *ProductRepository) distinct(column string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT DISTINCT ` + column + ` FROM products WHERE ` + column + ` != '' ORDER BY ` + column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	return values, rows.Err()
}

// Update updates an existing product in the database.
func (r *ProductRepository) Update(p *Product) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE products SET name = ?, description = ?, brand = ?, category = ?, price = ?,
		 image = ?, stock = ?, rating = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Brand, p.Category, p.Price, p.Image, p.Stock, p.Rating,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
