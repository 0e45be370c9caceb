package crops

// Record is one planted or harvested crop as the backend returns it.
type Record struct {
	ID           string             `json:"_id"`
	Name         string             `json:"cropName"`
	Variety      string             `json:"cropVariety"`
	PlantingDate string             `json:"plantingDate"`
	HarvestDate  string             `json:"harvestingDate"`
	UsedItems    []ConsumedResource `json:"usedItems"`
}

// ConsumedResource is one inventory line item attributed to producing a crop,
// enriched with the item's display name at submission time.
type ConsumedResource struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	ItemName string `json:"itemName"`
}

// ResourceInput is a caller-supplied {itemId, quantity} pair. Quantity is a
// string because it typically arrives straight from a form field; it is
// parsed and filtered during resolution.
type ResourceInput struct {
	ItemID   string `json:"itemId"`
	Quantity string `json:"quantity"`
}

// AddInput carries the caller-side fields for recording a crop. Date fields
// are renamed to the backend's wire names when the payload is built.
type AddInput struct {
	Name              string          `json:"name" validate:"required"`
	Variety           string          `json:"variety"`
	PlantedOn         string          `json:"plantedOn" validate:"required"`
	HarvestOn         string          `json:"harvestOn"`
	ConsumedResources []ResourceInput `json:"consumedResources"`
}

// UpdateInput mirrors AddInput for the update endpoint, which takes a
// different payload shape.
type UpdateInput struct {
	Name              string          `json:"name" validate:"required"`
	PlantedOn         string          `json:"plantedOn" validate:"required"`
	HarvestOn         string          `json:"harvestOn"`
	ConsumedResources []ResourceInput `json:"consumedResources"`
}

type addCropRequest struct {
	CropName       string             `json:"cropName"`
	PlantingDate   string             `json:"plantingDate"`
	HarvestingDate string             `json:"harvestingDate"`
	CropVariety    string             `json:"cropVariety"`
	UsedItems      []ConsumedResource `json:"usedItems"`
}

type updateCropRequest struct {
	CropName       string             `json:"cropName"`
	PlantingDate   string             `json:"plantingDate"`
	HarvestingDate string             `json:"harvestingDate"`
	ItemUsed       []ConsumedResource `json:"itemUsed"`
}
