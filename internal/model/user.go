package model

import "time"

// Role names the kind of account a user holds.  The value is stored
// verbatim in users.role and carried in the JWT "role" claim.
type Role string

const (
    RoleAdmin    Role = "admin"
    RoleMerchant Role = "merchant"
    RoleAgent    Role = "agent"
    RoleCustomer Role = "customer"

    // RoleSystem is never persisted.  It identifies transitions driven by
    // the engine itself, such as completing orders whose travel date passed.
    RoleSystem Role = "system"
)

// Valid reports whether r is one of the four account roles.
func (r Role) Valid() bool {
    switch r {
    case RoleAdmin, RoleMerchant, RoleAgent, RoleCustomer:
        return true
    }
    return false
}

// UserStatus is the approval state of an account.
type UserStatus string

const (
    UserPending   UserStatus = "pending"
    UserApproved  UserStatus = "approved"
    UserRejected  UserStatus = "rejected"
    UserSuspended UserStatus = "suspended"
)

// User represents an account as stored in the `users` table.  Users are
// never hard-deleted; suspension is a status.
//
// Fields:
//  ID              – opaque identifier (UUID string).
//  Email           – unique login, normalized to lower case.
//  PasswordHash    – bcrypt hash; never serialized.
//  Name, Phone     – profile fields.
//  Role            – admin, merchant, agent or customer.
//  Status          – approval state, written only through the workflow.
//  ManagingAgentID – for customers, the agent allowed to book on their
//                    behalf.  Empty when none.  This is a back-reference,
//                    not ownership.
type User struct {
    ID              string     `json:"id"`                          // users.id
    Email           string     `json:"email"`                       // users.email
    PasswordHash    string     `json:"-"`                           // users.password_hash
    Name            string     `json:"name"`                        // users.name
    Phone           string     `json:"phone,omitempty"`             // users.phone
    Role            Role       `json:"role"`                        // users.role
    Status          UserStatus `json:"status"`                      // users.status
    ManagingAgentID string     `json:"managing_agent_id,omitempty"` // users.managing_agent_id (nullable)
    CreatedAt       time.Time  `json:"created_at"`                  // users.created_at
    UpdatedAt       time.Time  `json:"updated_at"`                  // users.updated_at
}
