package graph

// MaxDepth is the largest resolve depth, meaning unbounded in practice.
const MaxDepth uint8 = 255

// EdgeResolveDepths bounds a knowledge-graph edge kind in both directions.
type EdgeResolveDepths struct {
	Incoming uint8 `json:"incoming"`
	Outgoing uint8 `json:"outgoing"`
}

// OutgoingEdgeResolveDepth bounds an ontology edge kind, which is only
// followed outward.
type OutgoingEdgeResolveDepth struct {
	Outgoing uint8 `json:"outgoing"`
}

// GraphResolveDepths records how many hops of each edge kind a subgraph was
// resolved to.
type GraphResolveDepths struct {
	InheritsFrom                 OutgoingEdgeResolveDepth `json:"inheritsFrom"`
	ConstrainsValuesOn           OutgoingEdgeResolveDepth `json:"constrainsValuesOn"`
	ConstrainsPropertiesOn       OutgoingEdgeResolveDepth `json:"constrainsPropertiesOn"`
	ConstrainsLinksOn            OutgoingEdgeResolveDepth `json:"constrainsLinksOn"`
	ConstrainsLinkDestinationsOn OutgoingEdgeResolveDepth `json:"constrainsLinkDestinationsOn"`
	IsOfType                     OutgoingEdgeResolveDepth `json:"isOfType"`
	HasLeftEntity                EdgeResolveDepths        `json:"hasLeftEntity"`
	HasRightEntity               EdgeResolveDepths        `json:"hasRightEntity"`
}

// FullDepths returns depths with every bound at MaxDepth.
func FullDepths() GraphResolveDepths {
	full := OutgoingEdgeResolveDepth{Outgoing: MaxDepth}
	both := EdgeResolveDepths{Incoming: MaxDepth, Outgoing: MaxDepth}
	return GraphResolveDepths{
		InheritsFrom:                 full,
		ConstrainsValuesOn:           full,
		ConstrainsPropertiesOn:       full,
		ConstrainsLinksOn:            full,
		ConstrainsLinkDestinationsOn: full,
		IsOfType:                     full,
		HasLeftEntity:                both,
		HasRightEntity:               both,
	}
}

// DefaultDepths resolves an entity's outgoing links and their targets, and
// nothing from the ontology.
func DefaultDepths() GraphResolveDepths {
	return GraphResolveDepths{
		HasLeftEntity:  EdgeResolveDepths{Incoming: 1},
		HasRightEntity: EdgeResolveDepths{Outgoing: 1},
	}
}

// depth slots, one per traversable (edge kind, direction) pair.
const (
	slotLeftIncoming = iota
	slotLeftOutgoing
	slotRightIncoming
	slotRightOutgoing
	slotInheritsFrom
	slotValues
	slotProperties
	slotLinks
	slotLinkDestinations
	slotIsOfType
	numSlots
)

type depthVector [numSlots]uint8

func (d GraphResolveDepths) vector() depthVector {
	return depthVector{
		slotLeftIncoming:     d.HasLeftEntity.Incoming,
		slotLeftOutgoing:     d.HasLeftEntity.Outgoing,
		slotRightIncoming:    d.HasRightEntity.Incoming,
		slotRightOutgoing:    d.HasRightEntity.Outgoing,
		slotInheritsFrom:     d.InheritsFrom.Outgoing,
		slotValues:           d.ConstrainsValuesOn.Outgoing,
		slotProperties:       d.ConstrainsPropertiesOn.Outgoing,
		slotLinks:            d.ConstrainsLinksOn.Outgoing,
		slotLinkDestinations: d.ConstrainsLinkDestinationsOn.Outgoing,
		slotIsOfType:         d.IsOfType.Outgoing,
	}
}

// covers reports whether every bound of v is at least the one of o.
func (v depthVector) covers(o depthVector) bool {
	for i := range v {
		if v[i] < o[i] {
			return false
		}
	}
	return true
}
