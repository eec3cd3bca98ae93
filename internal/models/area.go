package models

// Area identifies a department/workstation inside the shop.
type Area string

const (
	AreaPatronaje   Area = "patronaje"
	AreaCorte       Area = "corte"
	AreaBordado     Area = "bordado"
	AreaEnsamble    Area = "ensamble"
	AreaPlancha     Area = "plancha"
	AreaCalidad     Area = "calidad"
	AreaOperaciones Area = "operaciones"
	AreaEnvios      Area = "envios"
	AreaAlmacen     Area = "almacen"
	AreaAdmin       Area = "admin"
	AreaDiseno      Area = "diseño"
)

var validAreas = map[Area]struct{}{
	AreaPatronaje:   {},
	AreaCorte:       {},
	AreaBordado:     {},
	AreaEnsamble:    {},
	AreaPlancha:     {},
	AreaCalidad:     {},
	AreaOperaciones: {},
	AreaEnvios:      {},
	AreaAlmacen:     {},
	AreaAdmin:       {},
	AreaDiseno:      {},
}

// IsValidArea reports whether the given area is part of the shop floor map.
func IsValidArea(a Area) bool {
	_, ok := validAreas[a]
	return ok
}

// CanTransfer reports whether a handoff between the two areas is allowed.
// Any area may hand off to any other area except itself.
func CanTransfer(from, to Area) bool {
	if !IsValidArea(from) || !IsValidArea(to) {
		return false
	}
	return from != to
}

// PipelineOrder is the canonical production sequence used when assembling
// tracking views. Areas outside this list are appended after it.
var PipelineOrder = []Area{
	AreaPatronaje,
	AreaCorte,
	AreaBordado,
	AreaEnsamble,
	AreaPlancha,
	AreaCalidad,
}

// PipelineRank returns the position of an area in the canonical sequence,
// or len(PipelineOrder) when the area is not part of it.
func PipelineRank(a Area) int {
	for i, p := range PipelineOrder {
		if p == a {
			return i
		}
	}
	return len(PipelineOrder)
}

// approverAreas may approve or reject pending repositions.
var approverAreas = map[Area]struct{}{
	AreaOperaciones: {},
	AreaAdmin:       {},
	AreaEnvios:      {},
}

// IsApproverArea reports whether the area can resolve approval requests.
func IsApproverArea(a Area) bool {
	_, ok := approverAreas[a]
	return ok
}

// IsTerminalAuthority reports whether the area can complete, cancel or
// delete repositions directly.
func IsTerminalAuthority(a Area) bool {
	return a == AreaAdmin || a == AreaEnvios
}
