package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG mengeksekusi tiap operasi sebagai satu conditional UPDATE,
// jadi dua Reserve bersamaan diserialisasi oleh row lock postgres
// dan tidak pernah dua-duanya lolos melewati available.
type PG struct{ DB *pgxpool.Pool }

var _ Ledger = (*PG)(nil)

func (l *PG) Reserve(ctx context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET reserved = reserved + $2, updated_at = now()
		WHERE id = $1 AND stock - reserved >= $2`, productID, qty)
	if err != nil {
		return &PersistenceError{Op: "reserve", ProductID: productID, Err: err}
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	// guard gagal: bedakan not-found vs kurang stok
	p, err := l.Get(ctx, productID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{ProductID: productID, Available: p.Available(), Requested: qty}
}

func (l *PG) Release(ctx context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET reserved = GREATEST(reserved - $2, 0), updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return &PersistenceError{Op: "release", ProductID: productID, Err: err}
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (l *PG) Commit(ctx context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, reserved = GREATEST(reserved - $2, 0), updated_at = now()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return &PersistenceError{Op: "commit", ProductID: productID, Err: err}
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if _, err := l.Get(ctx, productID); err != nil {
		return err
	}
	// reservation invariant harusnya mencegah ini; tetap dicek defensif
	return &PersistenceError{Op: "commit", ProductID: productID,
		Err: errors.New("stock below committed quantity")}
}

func (l *PG) Restock(ctx context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return &PersistenceError{Op: "restock", ProductID: productID, Err: err}
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (l *PG) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := l.DB.QueryRow(ctx, `
		SELECT id, sku, name, stock, reserved, price_cents, created_at, updated_at
		FROM products WHERE id = $1`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.Reserved, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, &PersistenceError{Op: "get", ProductID: productID, Err: err}
	}
	return p, nil
}

func (l *PG) List(ctx context.Context) ([]Product, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT id, sku, name, stock, reserved, price_cents, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.Reserved, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProduct dipakai seeding/admin; bukan bagian interface Ledger.
func (l *PG) CreateProduct(ctx context.Context, p Product) error {
	_, err := l.DB.Exec(ctx, `
		INSERT INTO products(id, sku, name, stock, reserved, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.SKU, p.Name, p.Stock, p.Reserved, p.PriceCents)
	if err != nil {
		return &PersistenceError{Op: "create", ProductID: p.ID, Err: err}
	}
	return nil
}
