package domain

// Product is an immutable catalog entry, loaded once at startup.
type Product struct {
	UPC          string `json:"upc"`
	Name         string `json:"name"`
	MainCategory string `json:"main_category"`
	Subcategory  string `json:"subcategory"`
}

type RequestStatus string

const (
	StatusPending            RequestStatus = "pending"
	StatusInProgress         RequestStatus = "in_progress"
	StatusPaused             RequestStatus = "paused"
	StatusPartiallyCompleted RequestStatus = "partially_completed"
	StatusCompleted          RequestStatus = "completed"
	StatusCancelled          RequestStatus = "cancelled"
)

// Terminal reports whether no further transitions apply.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPaused,
		StatusPartiallyCompleted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// SortOrder ranks priorities for list views (urgent first).
func (p RequestPriority) SortOrder() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	}
	return 2
}

// ParsePriority returns normal for anything unrecognized.
func ParsePriority(s string) RequestPriority {
	switch RequestPriority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return RequestPriority(s)
	}
	return PriorityNormal
}

// PickItem is a line of a pick request. ProductName is a snapshot taken at
// request-creation time so later catalog edits never rewrite history.
type PickItem struct {
	RequestID    string `db:"request_id" json:"-"`
	UPC          string `db:"upc" json:"upc"`
	ProductName  string `db:"product_name" json:"product_name"`
	RequestedQty int    `db:"requested_qty" json:"requested_quantity"`
	PickedQty    int    `db:"picked_qty" json:"picked_quantity"`
}

func (i PickItem) Remaining() int { return i.RequestedQty - i.PickedQty }

func (i PickItem) Complete() bool { return i.PickedQty >= i.RequestedQty }

// PickRequest is the shared mutable aggregate. PickedBy is the exclusive
// picker lock: non-empty iff status is in_progress or paused.
type PickRequest struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Status         RequestStatus   `db:"status" json:"status"`
	Priority       RequestPriority `db:"priority" json:"priority"`
	CreatedBy      string          `db:"created_by" json:"created_by"`
	PickedBy       string          `db:"picked_by" json:"picked_by,omitempty"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
	CreatedAt      string          `db:"created_at" json:"created_at"`
	SubmittedAt    string          `db:"submitted_at" json:"submitted_at,omitempty"`
	LastActivityAt string          `db:"last_activity_at" json:"last_activity_at,omitempty"`
	Items          []PickItem      `db:"-" json:"items"`
}

func (r *PickRequest) Locked() bool { return r.PickedBy != "" }

func (r *PickRequest) LockedBy(userID string) bool {
	return r.PickedBy != "" && r.PickedBy == userID
}

func (r *PickRequest) Item(upc string) *PickItem {
	for i := range r.Items {
		if r.Items[i].UPC == upc {
			return &r.Items[i]
		}
	}
	return nil
}

func (r *PickRequest) UPCSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Items))
	for _, it := range r.Items {
		set[it.UPC] = struct{}{}
	}
	return set
}

func (r *PickRequest) TotalRequested() int {
	n := 0
	for _, it := range r.Items {
		n += it.RequestedQty
	}
	return n
}

func (r *PickRequest) TotalPicked() int {
	n := 0
	for _, it := range r.Items {
		n += it.PickedQty
	}
	return n
}

// PickedItems counts fully picked lines. Derived from Items every time so it
// can never drift from the quantities.
func (r *PickRequest) PickedItems() int {
	n := 0
	for _, it := range r.Items {
		if it.Complete() {
			n++
		}
	}
	return n
}

func (r *PickRequest) AllPicked() bool {
	for _, it := range r.Items {
		if !it.Complete() {
			return false
		}
	}
	return len(r.Items) > 0
}

// CompletionRate returns overall progress as a percentage.
func (r *PickRequest) CompletionRate() float64 {
	total := r.TotalRequested()
	if total == 0 {
		return 0
	}
	return float64(r.TotalPicked()) / float64(total) * 100
}

// StatusChange is emitted whenever a request transitions; dashboards and
// live sessions observing the request consume it.
type StatusChange struct {
	Name string        `json:"name"`
	Old  RequestStatus `json:"old_status"`
	New  RequestStatus `json:"new_status"`
}
