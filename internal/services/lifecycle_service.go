package services

import (
	"sync"

	"pickhub/internal/catalog"
	"pickhub/internal/domain"
	"pickhub/internal/picklog"
	"pickhub/internal/repos"
	"pickhub/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "pickhub/internal/log"
)

// ItemSpec is one requested line as the requester's cart submits it.
type ItemSpec struct {
	UPC string `json:"upc"`
	Qty int    `json:"quantity"`
}

// Scan entry modes. A line whose requested quantity reaches the threshold is
// bulk-entered (the client prompts for a count) instead of counted one scan
// at a time.
const (
	ScanModeCount = "count"
	ScanModeBulk  = "bulk"
)

type ScanOutcome struct {
	UPC             string `json:"upc"`
	ProductName     string `json:"product_name"`
	PickedQty       int    `json:"picked_quantity"`
	RequestedQty    int    `json:"requested_quantity"`
	Mode            string `json:"mode"`
	ItemComplete    bool   `json:"item_complete"`
	RequestComplete bool   `json:"request_complete"`
}

// LifecycleService owns every pick request state transition. All mutations of
// one request serialize on a per-name mutex, so check-and-set races (two
// pickers starting the same request) resolve to exactly one winner.
type LifecycleService struct {
	Requests *repos.RequestRepo
	Catalog  *catalog.Store
	PickLogs *picklog.Writer

	AutoModeThreshold int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan domain.StatusChange
	nextSub int
}

func NewLifecycleService(requests *repos.RequestRepo, cat *catalog.Store, logs *picklog.Writer, threshold int) *LifecycleService {
	return &LifecycleService{
		Requests:          requests,
		Catalog:           cat,
		PickLogs:          logs,
		AutoModeThreshold: threshold,
		locks:             make(map[string]*sync.Mutex),
		subs:              make(map[int]chan domain.StatusChange),
	}
}

func (s *LifecycleService) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[name]
	if !ok {
		m = &sync.Mutex{}
		s.locks[name] = m
	}
	return m
}

// Subscribe registers a status-change listener; the returned cancel func must
// be called when the listener goes away. Sends never block: a slow listener
// drops changes rather than stalling transitions.
func (s *LifecycleService) Subscribe() (<-chan domain.StatusChange, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.StatusChange, 16)
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *LifecycleService) notify(change domain.StatusChange) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Create validates a requester's cart against the catalog and persists a new
// pending request. Duplicate UPCs collapse into one line with summed quantity.
func (s *LifecycleService) Create(user *domain.User, rawName string, items []ItemSpec, priority, notes string) (*domain.PickRequest, error) {
	if !user.CanRequest() {
		return nil, domain.ErrForbidden("requester role required")
	}
	name, ok := validate.RequestName(rawName)
	if !ok {
		return nil, domain.ErrInvalidInput("request name must start with a letter and be 3-50 letters, digits, _ or -")
	}
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput("request must contain at least one item")
	}

	ix := s.Catalog.Current()
	seen := make(map[string]int) // upc -> index into lines
	var lines []domain.PickItem
	for _, it := range items {
		if it.Qty < 1 || !validate.Quantity(it.Qty, validate.MaxRequestedQty) {
			return nil, domain.ErrInvalidInput("quantity must be between 1 and 9999")
		}
		p, found := ix.LookupExact(it.UPC)
		if !found {
			return nil, domain.ErrNotFound("product " + it.UPC)
		}
		if i, dup := seen[p.UPC]; dup {
			lines[i].RequestedQty += it.Qty
			continue
		}
		seen[p.UPC] = len(lines)
		lines = append(lines, domain.PickItem{
			UPC:          p.UPC,
			ProductName:  p.Name,
			RequestedQty: it.Qty,
		})
	}

	req := &domain.PickRequest{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    domain.StatusPending,
		Priority:  domain.ParsePriority(priority),
		CreatedBy: user.ID,
		Notes:     notes,
		Items:     lines,
	}
	for i := range req.Items {
		req.Items[i].RequestID = req.ID
	}
	if err := s.Requests.Create(req); err != nil {
		return nil, err
	}
	applog.Audit(nil, "request.create", fiber.Map{"name": name, "items": len(lines), "by": user.Username})
	return req, nil
}

func (s *LifecycleService) Get(name string) (*domain.PickRequest, error) {
	return s.Requests.GetByName(name)
}

func (s *LifecycleService) List(f repos.ListFilter) ([]domain.PickRequest, error) {
	return s.Requests.List(f)
}

// Start acquires the exclusive pick lock. Under the per-name mutex the status
// is re-read, so of two concurrent starters exactly one sees pending.
func (s *LifecycleService) Start(user *domain.User, name string) (*domain.PickRequest, error) {
	if !user.CanPick() {
		return nil, domain.ErrForbidden("picker role required")
	}
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if req.Locked() && !req.LockedBy(user.ID) {
		return nil, domain.ErrLockHeld(req.PickedBy)
	}
	if req.Status != domain.StatusPending {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusPending)
	}

	old := req.Status
	req.Status = domain.StatusInProgress
	req.PickedBy = user.ID
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}
	applog.Audit(nil, "request.start", fiber.Map{"name": name, "picker": user.Username})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// Pause suspends an active pick. The lock stays with the picker so nobody
// else can take the request over mid-pick.
func (s *LifecycleService) Pause(user *domain.User, name string) (*domain.PickRequest, error) {
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if !req.LockedBy(user.ID) && !user.IsAdmin() {
		return nil, domain.ErrForbidden("only the active picker can pause this request")
	}
	if req.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusInProgress)
	}

	old := req.Status
	req.Status = domain.StatusPaused
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}
	applog.Audit(nil, "request.pause", fiber.Map{"name": name, "by": user.Username})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// Resume continues a paused pick. An admin resuming someone else's pick takes
// the lock over.
func (s *LifecycleService) Resume(user *domain.User, name string) (*domain.PickRequest, error) {
	if !user.CanPick() {
		return nil, domain.ErrForbidden("picker role required")
	}
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPaused {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusPaused)
	}
	// Only the picker who paused may resume; an admin resuming takes the
	// lock over.
	if !req.LockedBy(user.ID) && !user.IsAdmin() {
		return nil, domain.ErrForbidden("only the picker who paused this request can resume it")
	}

	old := req.Status
	req.Status = domain.StatusInProgress
	req.PickedBy = user.ID
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}
	applog.Audit(nil, "request.resume", fiber.Map{"name": name, "by": user.Username})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// ApplyScan records one successful in-request scan. Lines at or above the
// auto-mode threshold return bulk mode without counting; the client follows
// up with SetItemQty.
func (s *LifecycleService) ApplyScan(user *domain.User, name, upc string) (*ScanOutcome, error) {
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	// Lock before status: a picker whose lock was pulled sees lock-lost,
	// not a transition error, whatever state the request landed in.
	if !req.LockedBy(user.ID) {
		return nil, domain.ErrLockLost()
	}
	if req.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusInProgress)
	}
	item := req.Item(upc)
	if item == nil {
		return nil, domain.ErrNotFound("item " + upc)
	}

	out := &ScanOutcome{
		UPC:          item.UPC,
		ProductName:  item.ProductName,
		RequestedQty: item.RequestedQty,
		Mode:         ScanModeCount,
	}
	if item.RequestedQty > s.AutoModeThreshold {
		out.Mode = ScanModeBulk
		out.PickedQty = item.PickedQty
		out.ItemComplete = item.Complete()
		out.RequestComplete = req.AllPicked()
		return out, nil
	}

	if item.PickedQty < item.RequestedQty {
		item.PickedQty++
		if err := s.Requests.UpdateItemQty(req.ID, item.UPC, item.PickedQty); err != nil {
			return nil, err
		}
	}
	out.PickedQty = item.PickedQty
	out.ItemComplete = item.Complete()
	out.RequestComplete = req.AllPicked()
	return out, nil
}

// SetItemQty is the bulk-entry and manual-correction path. Values clamp to
// [0, requested]; over-reporting never inflates progress.
func (s *LifecycleService) SetItemQty(user *domain.User, name, upc string, qty int) (*ScanOutcome, error) {
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if !req.LockedBy(user.ID) {
		return nil, domain.ErrLockLost()
	}
	if req.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusInProgress)
	}
	item := req.Item(upc)
	if item == nil {
		return nil, domain.ErrNotFound("item " + upc)
	}
	if qty < 0 {
		qty = 0
	}
	if qty > item.RequestedQty {
		qty = item.RequestedQty
	}
	item.PickedQty = qty
	if err := s.Requests.UpdateItemQty(req.ID, item.UPC, qty); err != nil {
		return nil, err
	}
	return &ScanOutcome{
		UPC:             item.UPC,
		ProductName:     item.ProductName,
		PickedQty:       item.PickedQty,
		RequestedQty:    item.RequestedQty,
		Mode:            ScanModeBulk,
		ItemComplete:    item.Complete(),
		RequestComplete: req.AllPicked(),
	}, nil
}

// Submit closes out an active pick: completed when every line is full,
// partially_completed otherwise. The completion log is written either way.
// Only a fully completed request releases the lock; a partial one keeps it
// so the same picker can be sent back, until an admin approves or releases.
func (s *LifecycleService) Submit(user *domain.User, name string) (*domain.PickRequest, error) {
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if !req.LockedBy(user.ID) && !user.IsAdmin() {
		return nil, domain.ErrForbidden("only the active picker can submit this request")
	}
	if req.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusInProgress)
	}

	old := req.Status
	pickedBy := req.PickedBy
	if req.AllPicked() {
		req.Status = domain.StatusCompleted
		req.PickedBy = ""
	} else {
		req.Status = domain.StatusPartiallyCompleted
	}
	req.SubmittedAt = nowRFC3339()
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}

	if s.PickLogs != nil {
		if path, err := s.PickLogs.Write(req, pickedBy); err != nil {
			applog.Error(nil, "picklog.write.fail", err, fiber.Map{"name": name})
		} else {
			applog.Info(nil, "picklog.write", fiber.Map{"name": name, "path": path})
		}
	}
	applog.Audit(nil, "request.submit", fiber.Map{"name": name, "status": req.Status, "by": user.Username})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// Approve signs off a partial submission as final.
func (s *LifecycleService) Approve(user *domain.User, name string) (*domain.PickRequest, error) {
	if !user.IsAdmin() {
		return nil, domain.ErrForbidden("admin role required")
	}
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPartiallyCompleted {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusPartiallyCompleted)
	}

	old := req.Status
	req.Status = domain.StatusCompleted
	req.PickedBy = ""
	note := "approved as partial by " + user.Username
	if req.Notes != "" {
		note = req.Notes + "; " + note
	}
	req.Notes = note
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}
	applog.Audit(nil, "request.approve", fiber.Map{"name": name, "by": user.Username})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// ReleaseLock is the admin override for abandoned picks: the lock clears and
// the request returns to the pending queue with its picked quantities kept.
func (s *LifecycleService) ReleaseLock(user *domain.User, name string) (*domain.PickRequest, error) {
	if !user.IsAdmin() {
		return nil, domain.ErrForbidden("admin role required")
	}
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()
	return s.releaseLocked(name, "admin:"+user.Username)
}

// releaseLocked clears the lock on an in_progress/paused request. Callers
// hold the per-name mutex.
func (s *LifecycleService) releaseLocked(name, reason string) (*domain.PickRequest, error) {
	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if !req.Locked() {
		return req, nil
	}
	old := req.Status
	req.Status = domain.StatusPending
	req.PickedBy = ""
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}
	applog.Security(nil, "request.lock.release", fiber.Map{"name": name, "reason": reason})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// Cancel abandons a request before it is finished. Paused requests must be
// resumed (or have their lock released) first.
func (s *LifecycleService) Cancel(user *domain.User, name string) (*domain.PickRequest, error) {
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != user.ID && !user.IsAdmin() {
		return nil, domain.ErrForbidden("only the requester or an admin can cancel")
	}
	if req.Status != domain.StatusPending && req.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusPending)
	}

	old := req.Status
	req.Status = domain.StatusCancelled
	req.PickedBy = ""
	if err := s.Requests.Save(req); err != nil {
		return nil, err
	}
	applog.Audit(nil, "request.cancel", fiber.Map{"name": name, "by": user.Username})
	s.notify(domain.StatusChange{Name: name, Old: old, New: req.Status})
	return req, nil
}

// Delete removes a request outright. Only pending requests qualify: once a
// picker has touched it, cancel instead so the work is not destroyed
// silently. The janitor prunes terminal requests on its own schedule.
func (s *LifecycleService) Delete(user *domain.User, name string) error {
	m := s.lockFor(name)
	m.Lock()
	defer m.Unlock()

	req, err := s.Requests.GetByName(name)
	if err != nil {
		return err
	}
	if req.CreatedBy != user.ID && !user.IsAdmin() {
		return domain.ErrForbidden("only the requester or an admin can delete")
	}
	if req.Status != domain.StatusPending {
		return domain.ErrInvalidTransition(req.Status, domain.StatusPending)
	}
	if err := s.Requests.Delete(name); err != nil {
		return err
	}
	applog.Audit(nil, "request.delete", fiber.Map{"name": name, "by": user.Username})
	return nil
}

// ReleaseStale frees locks idle longer than cutoff allows. The cleanup loop
// calls this; pickers holding a freed lock see LOCKED (lost) on their next
// write.
func (s *LifecycleService) ReleaseStale(cutoff int) (int, error) {
	stale, err := s.Requests.FindStale(staleCutoff(cutoff))
	if err != nil {
		return 0, err
	}
	released := 0
	for _, req := range stale {
		m := s.lockFor(req.Name)
		m.Lock()
		if _, err := s.releaseLocked(req.Name, "stale"); err != nil {
			applog.Error(nil, "request.lock.release.fail", err, fiber.Map{"name": req.Name})
		} else {
			released++
		}
		m.Unlock()
	}
	return released, nil
}
