package store

import "time"

// User is a registered account. IDs are stable once assigned; the identity
// reconciler is the only path that ever rewrites one.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Event is the root aggregate; everything else hangs off an event.
// ExpenseTotal is a denormalized sum over the event's expenses, recomputed
// synchronously on every contributing write.
type Event struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	Status       string     `json:"status"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
	Budget       float64    `json:"budget"`
	ExpenseTotal float64    `json:"expense_total"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Permissions is the typed shape of the team_members.permissions JSONB
// column. The domain layer never sees untyped maps; (un)marshalling happens
// only at the store edge.
type Permissions struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanInvite bool `json:"can_invite"`
}

// TeamMember links a user to an event with a role. At most one row exists
// per (event, user) pair; AddTeamMember upserts rather than duplicating.
type TeamMember struct {
	EventID     string      `json:"event_id"`
	UserID      string      `json:"user_id"`
	Role        string      `json:"role"` // "organizer" or "member"
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Task is a checklist item within an event. AssigneeID is the primary
// assignee; additional assignees live in task_assignees.
type Task struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	AssigneeID *string    `json:"assignee_id,omitempty"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	Status     string     `json:"status"` // "todo", "in_progress", "done"
	DueAt      *time.Time `json:"due_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TaskAssignee is an additional user assigned to a task.
type TaskAssignee struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Vendor is a supplier attached to an event.
type Vendor struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Website      string    `json:"website,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expense is a budget line item. Writing one recomputes the parent event's
// ExpenseTotal in the same transaction.
type Expense struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	VendorID   *string    `json:"vendor_id,omitempty"`
	Name       string     `json:"name"`
	Category   string     `json:"category,omitempty"`
	Amount     float64    `json:"amount"`
	IncurredAt *time.Time `json:"incurred_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Document is uploaded-file metadata; the bytes live under StorageKey in
// external storage and are not this layer's concern.
type Document struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	UploadedByID string    `json:"uploaded_by_id"`
	Name         string    `json:"name"`
	ContentType  string    `json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	StorageKey   string    `json:"storage_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityEntry records who did what on an event.
type ActivityEntry struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertUserInput creates a user or refreshes the row with the same id.
type UpsertUserInput struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	AvatarURL    string `json:"avatar_url"`
	PasswordHash string `json:"-"`
}

// UpdateUserInput holds optional fields for a partial user update.
type UpdateUserInput struct {
	Email     *string `json:"email,omitempty"`
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// CreateEventInput holds the fields required to create an event.
type CreateEventInput struct {
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Budget      float64    `json:"budget"`
}

// UpdateEventInput holds optional fields for a partial event update.
type UpdateEventInput struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Status      *string    `json:"status,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
}

// AddTeamMemberInput upserts a membership row.
type AddTeamMemberInput struct {
	EventID     string      `json:"event_id"`
	UserID      string      `json:"user_id"`
	Role        string      `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// CreateTaskInput holds the fields required to create a task.
type CreateTaskInput struct {
	EventID    string     `json:"event_id"`
	AssigneeID *string    `json:"assignee_id"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	Status     string     `json:"status"`
	DueAt      *time.Time `json:"due_at"`
}

// UpdateTaskInput holds optional fields for a partial task update.
type UpdateTaskInput struct {
	AssigneeID *string    `json:"assignee_id,omitempty"`
	Title      *string    `json:"title,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Status     *string    `json:"status,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
}

// CreateVendorInput holds the fields required to create a vendor.
type CreateVendorInput struct {
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Website      string `json:"website"`
	Notes        string `json:"notes"`
	Status       string `json:"status"`
}

// UpdateVendorInput holds optional fields for a partial vendor update.
type UpdateVendorInput struct {
	Name         *string `json:"name,omitempty"`
	Category     *string `json:"category,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Website      *string `json:"website,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// CreateExpenseInput holds the fields required to create an expense.
type CreateExpenseInput struct {
	EventID    string     `json:"event_id"`
	VendorID   *string    `json:"vendor_id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Amount     float64    `json:"amount"`
	IncurredAt *time.Time `json:"incurred_at"`
}

// UpdateExpenseInput holds optional fields for a partial expense update.
type UpdateExpenseInput struct {
	VendorID   *string    `json:"vendor_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Category   *string    `json:"category,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	IncurredAt *time.Time `json:"incurred_at,omitempty"`
}

// CreateDocumentInput records uploaded-file metadata.
type CreateDocumentInput struct {
	EventID      string `json:"event_id"`
	UploadedByID string `json:"uploaded_by_id"`
	Name         string `json:"name"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	StorageKey   string `json:"storage_key"`
}
