package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/inventory"
	kafkax "github.com/ariefcatur/b2b-orders.git/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Store menyimpan order; Create wajib mengisi OrderNumber dari counter
// yang diserialisasi (bukan max(order_number)+1). SetStatus adalah
// compare-and-set: hanya menulis kalau status masih `from`, supaya dua
// transisi bersamaan dari snapshot yang sama cuma satu yang menang.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	ListForUser(ctx context.Context, userID string, role Role) ([]Order, error)
	SetStatus(ctx context.Context, id string, from, to Status) error
	AppendNote(ctx context.Context, id string, n Note) error
	ReplaceItems(ctx context.Context, id string, items []Item, totalCents int) error
	Delete(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Lifecycle adalah satu-satunya jalur mutasi order; semua sentuhan
// stock/reserved lewat inventory.Ledger, tidak pernah langsung ke storage.
type Lifecycle struct {
	Store   Store
	Ledger  inventory.Ledger
	Created Publisher // order.created
	Changed Publisher // order.status.changed
	Log     *slog.Logger
	Service string
}

type CreateInput struct {
	ClientID      string
	SupplierID    string
	ClientEmail   string
	SupplierEmail string
	Items         []ItemInput
	TraceID       string
}

func (in CreateInput) validate() error {
	if in.ClientID == "" || in.SupplierID == "" {
		return fmt.Errorf("client_id and supplier_id are required")
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("order needs at least one item")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" {
			return fmt.Errorf("item product_id is required")
		}
		if it.Qty < 1 {
			return fmt.Errorf("item qty must be >= 1 for product %s", it.ProductID)
		}
		if seen[it.ProductID] {
			return fmt.Errorf("duplicate product %s in items", it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

// Create: all-or-nothing. Reservation yang sudah sukses dilepas lagi
// begitu item berikutnya (atau persist) gagal.
func (lc *Lifecycle) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := in.validate(); err != nil {
		return Order{}, err
	}

	lines := make([]Item, 0, len(in.Items))
	reserved := make([]ItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		p, err := lc.Ledger.Get(ctx, it.ProductID)
		if err != nil {
			lc.releaseAll(ctx, reserved)
			return Order{}, err
		}
		if err := lc.Ledger.Reserve(ctx, it.ProductID, it.Qty); err != nil {
			lc.releaseAll(ctx, reserved)
			return Order{}, err
		}
		reserved = append(reserved, it)
		lines = append(lines, Item{
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			PriceCents:     p.PriceCents,
			LineTotalCents: p.PriceCents * it.Qty,
		})
	}

	now := time.Now().UTC()
	o := Order{
		ID:            uuid.NewString(),
		ClientID:      in.ClientID,
		SupplierID:    in.SupplierID,
		ClientEmail:   in.ClientEmail,
		SupplierEmail: in.SupplierEmail,
		Status:        StatusPending,
		Items:         lines,
		TotalCents:    sumLines(lines),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := lc.Store.Create(ctx, o)
	if err != nil {
		lc.releaseAll(ctx, reserved)
		return Order{}, err
	}

	itemLines := make([]ItemLine, 0, len(created.Items))
	for _, it := range created.Items {
		itemLines = append(itemLines, ItemLine{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents})
	}
	lc.emit(lc.Created, EventOrderCreated, created.ID, in.TraceID, OrderCreatedPayload{
		OrderID:        created.ID,
		OrderNumber:    created.OrderNumber,
		ClientID:       created.ClientID,
		SupplierID:     created.SupplierID,
		Items:          itemLines,
		TotalCents:     created.TotalCents,
		RecipientEmail: created.SupplierEmail, // supplier diberi tahu ada order baru
	})
	return created, nil
}

// UpdateStatus menjalankan state machine. Supplier memegang transisi;
// client hanya boleh cancel (pending -> rejected, dengan note).
func (lc *Lifecycle) UpdateStatus(ctx context.Context, orderID, actorID string, role Role, next Status, note string) (Order, error) {
	o, err := lc.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !o.party(actorID, role) {
		return Order{}, ErrForbidden
	}
	if role == RoleClient && !(next == StatusRejected && o.Status == StatusPending) {
		return Order{}, ErrForbidden
	}
	if !ValidStatus(next) || !CanTransition(o.Status, next) {
		return Order{}, ErrInvalidTransition
	}
	if next == StatusRejected && note == "" {
		return Order{}, ErrNoteRequired
	}

	switch next {
	case StatusApproved:
		// klaim status lewat CAS dulu; yang kalah balapan tidak pernah
		// menyentuh ledger. Kalau commit gagal di tengah, commit yang
		// sudah jalan dibalikkan dan status dikembalikan.
		prev := o.Status
		if err := lc.finishTransition(ctx, &o, actorID, next, note); err != nil {
			return Order{}, err
		}
		for i, it := range o.Items {
			if err := lc.Ledger.Commit(ctx, it.ProductID, it.Qty); err != nil {
				lc.uncommit(ctx, o.Items[:i])
				if rbErr := lc.Store.SetStatus(ctx, o.ID, next, prev); rbErr != nil {
					lc.Log.Error("status rollback after failed commit", "order_id", o.ID, "err", rbErr)
				}
				return Order{}, err
			}
		}
	case StatusRejected:
		// status dulu (CAS), baru release: yang kalah balapan maupun
		// retry setelah sukses tidak akan pernah double-release.
		if err := lc.finishTransition(ctx, &o, actorID, next, note); err != nil {
			return Order{}, err
		}
		for _, it := range o.Items {
			if err := lc.Ledger.Release(ctx, it.ProductID, it.Qty); err != nil {
				lc.Log.Error("release after reject failed; reservation leaked",
					"order_id", o.ID, "product_id", it.ProductID, "qty", it.Qty, "err", err)
			}
		}
	default:
		if err := lc.finishTransition(ctx, &o, actorID, next, note); err != nil {
			return Order{}, err
		}
	}

	recipient := o.ClientEmail
	if role == RoleClient {
		recipient = o.SupplierEmail
	}
	lc.emit(lc.Changed, EventOrderStatusChanged, o.ID, "", OrderStatusChangedPayload{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		OldStatus:      o.Status,
		NewStatus:      next,
		ActorID:        actorID,
		Note:           note,
		RecipientEmail: recipient,
	})
	o.Status = next
	return o, nil
}

func (lc *Lifecycle) finishTransition(ctx context.Context, o *Order, actorID string, next Status, note string) error {
	// CAS di storage: titik mutual exclusion-nya storage layer, bukan
	// validasi di memori yang bisa balapan.
	if err := lc.Store.SetStatus(ctx, o.ID, o.Status, next); err != nil {
		return err
	}
	if note != "" {
		n := Note{Message: note, ActorID: actorID, At: time.Now().UTC()}
		if err := lc.Store.AppendNote(ctx, o.ID, n); err != nil {
			lc.Log.Error("note append after transition failed", "order_id", o.ID, "err", err)
		} else {
			o.Notes = append(o.Notes, n)
		}
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateItems hanya saat pending dan hanya oleh client. Delta reservation
// disesuaikan: naik -> Reserve selisih, turun/hilang -> Release selisih.
func (lc *Lifecycle) UpdateItems(ctx context.Context, orderID, actorID string, items []ItemInput) (Order, error) {
	o, err := lc.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !o.party(actorID, RoleClient) {
		return Order{}, ErrForbidden
	}
	if o.Status != StatusPending {
		return Order{}, ErrInvalidTransition
	}
	probe := CreateInput{ClientID: o.ClientID, SupplierID: o.SupplierID, Items: items}
	if err := probe.validate(); err != nil {
		return Order{}, err
	}

	oldQty := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		oldQty[it.ProductID] = it.Qty
	}

	// harga dulu: product tak dikenal harus gagal sebelum ada delta yang jalan
	lines := make([]Item, 0, len(items))
	for _, it := range items {
		p, err := lc.Ledger.Get(ctx, it.ProductID)
		if err != nil {
			return Order{}, err
		}
		lines = append(lines, Item{
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			PriceCents:     p.PriceCents,
			LineTotalCents: p.PriceCents * it.Qty,
		})
	}

	var increases, decreases []ItemInput
	newQty := make(map[string]int, len(items))
	for _, it := range items {
		newQty[it.ProductID] = it.Qty
		if d := it.Qty - oldQty[it.ProductID]; d > 0 {
			increases = append(increases, ItemInput{ProductID: it.ProductID, Qty: d})
		} else if d < 0 {
			decreases = append(decreases, ItemInput{ProductID: it.ProductID, Qty: -d})
		}
	}
	for pid, q := range oldQty {
		if _, keep := newQty[pid]; !keep {
			decreases = append(decreases, ItemInput{ProductID: pid, Qty: q})
		}
	}

	// kenaikan dulu (bisa gagal karena stok), rollback-nya aman via release
	applied := make([]ItemInput, 0, len(increases))
	for _, d := range increases {
		if err := lc.Ledger.Reserve(ctx, d.ProductID, d.Qty); err != nil {
			lc.releaseAll(ctx, applied)
			return Order{}, err
		}
		applied = append(applied, d)
	}

	total := sumLines(lines)
	if err := lc.Store.ReplaceItems(ctx, o.ID, lines, total); err != nil {
		lc.releaseAll(ctx, applied)
		return Order{}, err
	}

	// penurunan setelah persist sukses; gagal di sini cuma leak yang ke-log
	for _, d := range decreases {
		if err := lc.Ledger.Release(ctx, d.ProductID, d.Qty); err != nil {
			lc.Log.Error("release on item decrease failed; reservation leaked",
				"order_id", o.ID, "product_id", d.ProductID, "qty", d.Qty, "err", err)
		}
	}

	o.Items = lines
	o.TotalCents = total
	o.UpdatedAt = time.Now().UTC()
	return o, nil
}

func (lc *Lifecycle) AddNote(ctx context.Context, orderID, actorID string, role Role, message string) (Order, error) {
	if message == "" {
		return Order{}, ErrNoteRequired
	}
	o, err := lc.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !o.party(actorID, role) {
		return Order{}, ErrForbidden
	}
	n := Note{Message: message, ActorID: actorID, At: time.Now().UTC()}
	if err := lc.Store.AppendNote(ctx, orderID, n); err != nil {
		return Order{}, err
	}
	o.Notes = append(o.Notes, n)
	return o, nil
}

// Delete: administratif, tidak boleh untuk order approved. Reservation
// yang masih outstanding dilepas dulu sebelum record dihapus.
func (lc *Lifecycle) Delete(ctx context.Context, orderID, actorID string, role Role) error {
	o, err := lc.Store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.party(actorID, role) {
		return ErrForbidden
	}
	if o.Status == StatusApproved {
		return ErrInvalidTransition
	}
	if !o.Status.IsTerminal() {
		for _, it := range o.Items {
			if err := lc.Ledger.Release(ctx, it.ProductID, it.Qty); err != nil {
				lc.Log.Error("release before delete failed; reservation leaked",
					"order_id", o.ID, "product_id", it.ProductID, "qty", it.Qty, "err", err)
			}
		}
	}
	return lc.Store.Delete(ctx, orderID)
}

func (lc *Lifecycle) Get(ctx context.Context, orderID string) (Order, error) {
	return lc.Store.Get(ctx, orderID)
}

func (lc *Lifecycle) ListForUser(ctx context.Context, userID string, role Role) ([]Order, error) {
	return lc.Store.ListForUser(ctx, userID, role)
}

func (lc *Lifecycle) releaseAll(ctx context.Context, items []ItemInput) {
	for _, it := range items {
		if err := lc.Ledger.Release(ctx, it.ProductID, it.Qty); err != nil {
			lc.Log.Error("compensating release failed",
				"product_id", it.ProductID, "qty", it.Qty, "err", err)
		}
	}
}

// uncommit membalikkan Commit: restock mengembalikan stok fisik, reserve
// mengembalikan hold. Reserve di sini tidak bisa gagal kurang stok karena
// restock barusan menaikkan available sebesar qty yang sama.
func (lc *Lifecycle) uncommit(ctx context.Context, items []Item) {
	for _, it := range items {
		if err := lc.Ledger.Restock(ctx, it.ProductID, it.Qty); err != nil {
			lc.Log.Error("uncommit restock failed", "product_id", it.ProductID, "qty", it.Qty, "err", err)
			continue
		}
		if err := lc.Ledger.Reserve(ctx, it.ProductID, it.Qty); err != nil {
			lc.Log.Error("uncommit reserve failed", "product_id", it.ProductID, "qty", it.Qty, "err", err)
		}
	}
}

func (lc *Lifecycle) emit(pub Publisher, eventType, orderID, trace string, payload any) {
	if pub == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      lc.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
