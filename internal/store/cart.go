package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CartItem represents one product line in a user's cart, joined with the
// product's display fields.
type CartItem struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	ProductName  string
	ProductBrand string
	ProductPrice float64
	ProductImage string
}

// CartSummary aggregates a user's cart.
type CartSummary struct {
	TotalItems int
	TotalPrice float64
}

// CartRepository provides cart operations.
type CartRepository struct {
	db *sql.DB
}

// Cart returns the cart repository for this store.
func (s *Store) Cart() *CartRepository {
	return &CartRepository{db: s.db}
}

// Add puts a product in the user's cart. Adding a product that is already
// in the cart increments its quantity instead of creating a second row.
func (r *CartRepository) Add(userID, productID string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	now := time.Now()
	_, err := r.db.Exec(
		`INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, product_id)
		 DO UPDATE SET quantity = quantity + excluded.quantity, updated_at = excluded.updated_at`,
		uuid.New().String(), userID, productID, quantity, now, now,
	)
	return err
}

// UpdateQuantity sets the quantity of a cart line. A quantity below one
// removes the line.
func (r *CartRepository) UpdateQuantity(userID, productID string, quantity int) error {
	if quantity < 1 {
		return r.Remove(userID, productID)
	}

	result, err := r.db.Exec(
		`UPDATE cart_items SET quantity = ?, updated_at = ?
		 WHERE user_id = ? AND product_id = ?`,
		quantity, time.Now(), userID, productID,
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

// Remove deletes one product line from the user's cart.
func (r *CartRepository) Remove(userID, productID string) error {
	result, err := r.db.Exec(
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`,
		userID, productID,
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

// Clear empties the user's cart.
func (r *CartRepository) Clear(userID string) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

// ListByUser retrieves the user's cart lines with product details, newest
// first.
func (r *CartRepository) ListByUser(userID string) ([]*CartItem, error) {
	rows, err := r.db.Query(
		`SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		        p.name, p.brand, p.price, p.image
		 FROM cart_items c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = ?
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CartItem
	for rows.Next() {
		item := &CartItem{}
		err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
			&item.CreatedAt, &item.UpdatedAt,
			&item.ProductName, &item.ProductBrand, &item.ProductPrice, &item.ProductImage)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Summary totals the user's cart.
func (r *CartRepository) Summary(userID string) (*CartSummary, error) {
	summary := &CartSummary{}

	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(c.quantity), 0), COALESCE(SUM(c.quantity * p.price), 0)
		 FROM cart_items c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = ?`,
		userID,
	).Scan(&summary.TotalItems, &summary.TotalPrice)
	if err != nil {
		return nil, err
	}

	return summary, nil
}
