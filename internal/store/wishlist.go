package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WishlistItem represents one wished-for product, joined with the product's
// display fields.
type WishlistItem struct {
	ID        string
	UserID    string
	ProductID string
	CreatedAt time.Time

	ProductName  string
	ProductBrand string
	ProductPrice float64
	ProductImage string
}

// WishlistRepository provides wishlist operations.
type WishlistRepository struct {
	db *sql.DB
}

// Wishlist returns the wishlist repository for this store.
func (s *Store) Wishlist() *WishlistRepository {
	return &WishlistRepository{db: s.db}
}

// Add puts a product on the user's wishlist. Adding a product twice is a
// no-op.
func (r *WishlistRepository) Add(userID, productID string) error {
	_, err := r.db.Exec(
		`INSERT INTO wishlist_items (id, user_id, product_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, product_id) DO NOTHING`,
		uuid.New().String(), userID, productID, time.Now(),
	)
	return err
}

// Remove takes a product off the user's wishlist.
func (r *WishlistRepository) Remove(userID, productID string) error {
	result, err := r.db.Exec(
		`DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?`,
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

// Toggle flips the wishlist state of a product and reports whether the
// product is on the wishlist afterwards.
func (r *WishlistRepository) Toggle(userID, productID string) (bool, error) {
	err := r.Remove(userID, productID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if err := r.Add(userID, productID); err != nil {
		return false, err
	}
	return true, nil
}

// Contains reports whether a product is on the user's wishlist.
func (r *WishlistRepository) Contains(userID, productID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(1) FROM wishlist_items WHERE user_id = ? AND product_id = ?`,
		userID, productID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Clear empties the user's wishlist.
func (r *WishlistRepository) Clear(userID string) error {
	_, err := r.db.Exec(`DELETE FROM wishlist_items WHERE user_id = ?`, userID)
	return err
}

// ListByUser retrieves the user's wishlist with product details, newest
// first.
func (r *WishlistRepository) ListByUser(userID string) ([]*WishlistItem, error) {
	rows, err := r.db.Query(
		`SELECT w.id, w.user_id, w.product_id, w.created_at,
		        p.name, p.brand, p.price, p.image
		 FROM wishlist_items w
		 JOIN products p ON p.id = w.product_id
		 WHERE w.user_id = ?
		 ORDER BY w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*WishlistItem
	for rows.Next() {
		item := &WishlistItem{}
		err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt,
			&item.ProductName, &item.ProductBrand, &item.ProductPrice, &item.ProductImage)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
