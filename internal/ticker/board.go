package ticker

import (
	"fmt"
	"sync"
	"time"

	"stockticker/internal/provider"
)

// Fragment is one symbol's slot in the ticker bar.
type Fragment struct {
	Symbol string          `json:"symbol"`
	Status provider.Status `json:"status"`
	Price  string          `json:"price,omitempty"`
	Text   string          `json:"text"`
}

// FragmentFor renders q as a ticker slot. Failures only degrade their own
// slot.
func FragmentFor(q provider.Quote) Fragment {
	f := Fragment{Symbol: q.Symbol, Status: q.Status}
	switch q.Status {
	case provider.StatusOK:
		if q.Price == "" {
			f.Status = provider.StatusInvalidSymbol
			f.Text = fmt.Sprintf("%s: N/A", q.Symbol)
			break
		}
		f.Price = q.Price
		f.Text = fmt.Sprintf("%s: $%s", q.Symbol, q.Price)
	case provider.StatusRateLimited:
		f.Text = fmt.Sprintf("%s: API Limit", q.Symbol)
	case provider.StatusNetworkError:
		f.Text = fmt.Sprintf("%s: Error", q.Symbol)
	default:
		f.Text = fmt.Sprintf("%s: N/A", q.Symbol)
	}
	return f
}

// Snapshot is a copy of the board at one instant.
type Snapshot struct {
	Fragments []Fragment `json:"fragments"`
	Pass      int        `json:"pass"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Board is the progressively updated display buffer shared between the cycle
// and its readers.
type Board struct {
	mu        sync.RWMutex
	fragments []Fragment
	pass      int
	updatedAt time.Time
}

func NewBoard() *Board { return &Board{} }

// begin starts a new pass with an empty buffer.
func (b *Board) begin(at time.Time) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pass++
	b.fragments = nil
	b.updatedAt = at
	return b.snapshotLocked()
}

func (b *Board) append(at time.Time, fs ...Fragment) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragments = append(b.fragments, fs...)
	b.updatedAt = at
	return b.snapshotLocked()
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() Snapshot {
	return Snapshot{
		Fragments: append([]Fragment(nil), b.fragments...),
		Pass:      b.pass,
		UpdatedAt: b.updatedAt,
	}
}
