package inventory

// Item is one stock row as the backend returns it. Fields the client does not
// interpret ride along unchanged in requests and responses.
type Item struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
	Supplier    string `json:"supplier,omitempty"`
}

// Category metadata is read-only from this layer; there is no mutation
// endpoint for it.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

// ItemInput carries the caller-supplied fields for create and partial-update
// requests.
type ItemInput struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Unit        string `json:"unit"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	Description string `json:"description,omitempty"`
	Supplier    string `json:"supplier,omitempty"`
}

// createItemData is the create endpoint's data payload: the item row and its
// stock sub-object arrive separately and are merged for the optimistic append.
type createItemData struct {
	Item      *Item      `json:"item"`
	ItemStock *itemStock `json:"itemStock"`
}

type itemStock struct {
	Quantity int `json:"quantity"`
}

type adjustQuantityRequest struct {
	QuantityChange int `json:"quantityChange"`
}
