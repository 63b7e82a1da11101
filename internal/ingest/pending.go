package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// DefaultPendingLimit bounds how many workbooks may wait for manual configuration.
const DefaultPendingLimit = 32

// PreviewRows is the number of leading rows shown when configuring a pending workbook.
const PreviewRows = 30

// Pending is a decoded workbook waiting for an operator to pick the item table.
type Pending struct {
	ID        string           `json:"id"`
	FileName  string           `json:"file_name"`
	Worksheet *sheet.Worksheet `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// Preview returns the first PreviewRows rows of the pending workbook.
func (p *Pending) Preview() sheet.Grid {
	g := p.Worksheet.Grid
	if len(g) > PreviewRows {
		return g[:PreviewRows]
	}
	return g
}

// pendingSet holds workbooks awaiting manual configuration, oldest evicted first.
type pendingSet struct {
	mu    sync.Mutex
	limit int
	order []string
	byID  map[string]*Pending
}

func newPendingSet(limit int) *pendingSet {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	return &pendingSet{limit: limit, byID: make(map[string]*Pending)}
}

func (s *pendingSet) add(fileName string, ws *sheet.Worksheet, at time.Time) *Pending {
	p := &Pending{ID: uuid.NewString(), FileName: fileName, Worksheet: ws, CreatedAt: at}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, p.ID)
	s.byID[p.ID] = p
	return p
}

func (s *pendingSet) get(id string) (*Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	return p, ok
}

func (s *pendingSet) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *pendingSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
