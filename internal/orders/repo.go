package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// Create: order number dari satu row counter yang di-update atomik,
// bukan dari scan max(order_number) yang balapan di concurrent create.
func (r *Repo) Create(ctx context.Context, o Order) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO counters(name, value) VALUES ('order_number', 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`).Scan(&o.OrderNumber)
	if err != nil {
		return Order{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, client_id, supplier_id, client_email, supplier_email, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		o.ID, o.OrderNumber, o.ClientID, o.SupplierID, o.ClientEmail, o.SupplierEmail, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.ProductID, it.Qty, it.PriceCents, it.LineTotalCents)
		if err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_number, client_id, supplier_id, client_email, supplier_email, status, total_cents, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.ClientID, &o.SupplierID, &o.ClientEmail, &o.SupplierEmail, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, price_cents, line_total_cents
		FROM order_items WHERE order_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.PriceCents, &it.LineTotalCents); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}

	nrows, err := r.DB.Query(ctx, `
		SELECT message, actor_id, created_at
		FROM order_notes WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer nrows.Close()
	for nrows.Next() {
		var n Note
		if err := nrows.Scan(&n.Message, &n.ActorID, &n.At); err != nil {
			return Order{}, err
		}
		o.Notes = append(o.Notes, n)
	}
	return o, nrows.Err()
}

func (r *Repo) ListForUser(ctx context.Context, userID string, role Role) ([]Order, error) {
	col := "client_id"
	if role == RoleSupplier {
		col = "supplier_id"
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_number, client_id, supplier_id, client_email, supplier_email, status, total_cents, created_at, updated_at
		FROM orders WHERE `+col+` = $1 ORDER BY order_number DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.ClientID, &o.SupplierID, &o.ClientEmail, &o.SupplierEmail, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetStatus compare-and-set: guard `status = from` di SQL supaya dua
// transisi bersamaan diserialisasi oleh row lock, sama seperti ledger.
func (r *Repo) SetStatus(ctx context.Context, id string, from, to Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	// guard gagal: bedakan order hilang vs status sudah bergeser
	var exists bool
	if err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

func (r *Repo) AppendNote(ctx context.Context, id string, n Note) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_notes(order_id, actor_id, message, created_at)
		VALUES ($1, $2, $3, $4)`, id, n.ActorID, n.Message, n.At)
	return err
}

func (r *Repo) ReplaceItems(ctx context.Context, id string, items []Item, totalCents int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			id, it.ProductID, it.Qty, it.PriceCents, it.LineTotalCents); err != nil {
			return err
		}
	}
	ct, err := tx.Exec(ctx, `
		UPDATE orders SET total_cents = $2, updated_at = now() WHERE id = $1`, id, totalCents)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
