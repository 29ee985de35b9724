package domain

import "time"

// Owner owns its properties; removing the owner removes them too.
type Owner struct {
	ID         int32      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Properties []Property `json:"properties,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Property struct {
	ID        int32     `json:"id"`
	OwnerID   int32     `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}
