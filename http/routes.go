package http

import "github.com/tedsuo/rata"

const (
	ListUnits  = "ListUnits"
	AddUnit    = "AddUnit"
	RemoveUnit = "RemoveUnit"
)

var Routes = rata.Routes{
	{Path: "/containers", Method: "GET", Name: ListUnits},
	{Path: "/container/:id", Method: "PUT", Name: AddUnit},
	{Path: "/container/:id", Method: "DELETE", Name: RemoveUnit},
}

// ContainerList is the body of a ListUnits response.
type ContainerList struct {
	Containers []ContainerInfo `json:"Containers"`
}

type ContainerInfo struct {
	Id          string `json:"Id"`
	Image       string `json:"Image,omitempty"`
	ActiveState string `json:"ActiveState,omitempty"`
	LoadState   string `json:"LoadState,omitempty"`
	SubState    string `json:"SubState"`
}

// AddUnitRequest is the body of an AddUnit request.
type AddUnitRequest struct {
	Image   string `json:"Image"`
	Started bool   `json:"Started"`
}
