package workflow

// Graph holds the legal (status, role) -> targets edges. It is immutable
// configuration data, built once at process start.
type Graph struct {
	edges map[Status]map[Role][]Status
}

// NewGraph builds the certification graph. Admin holds every edge any other
// role holds, plus the administrative ones (rejection, archival, edit flow).
func NewGraph() *Graph {
	edges := map[Status]map[Role][]Status{
		StatusReceived: {
			RoleWarehouse: {StatusPendingQC},
			RoleAdmin:     {StatusPendingQC, StatusEditRequested},
		},
		StatusPendingQC: {
			RoleQC: {StatusQCChecked, StatusQCFailed},
		},
		StatusQCChecked: {
			RoleQC: {StatusQCPassed, StatusQCFailed, StatusLabTesting},
		},
		StatusQCPassed: {
			RoleQC: {StatusApproved},
		},
		StatusQCFailed: {
			RoleQC:    {StatusPendingQC},
			RoleAdmin: {StatusRejected},
		},
		StatusLabTesting: {
			RoleLab: {StatusSamplesRequested},
		},
		StatusSamplesRequested: {
			RoleWarehouse: {StatusSamplesCollected},
			RoleLab:       {StatusSamplesCollected},
		},
		StatusSamplesCollected: {
			RoleLab: {StatusTesting},
		},
		StatusTesting: {
			RoleLab: {StatusTestingCompleted},
		},
		StatusTestingCompleted: {
			RoleQC: {StatusApproved, StatusQCFailed},
		},
		StatusApproved: {
			RoleWarehouse: {StatusReadyForUse},
			RoleAdmin:     {StatusArchived},
		},
		StatusReadyForUse: {
			RoleWarehouse: {StatusInUse},
			RoleAdmin:     {StatusArchived},
		},
		StatusRejected: {
			RoleAdmin: {StatusArchived, StatusPendingQC},
		},
		StatusEditRequested: {
			RoleWarehouse: {StatusReceived},
		},
		// Terminal states carry no outgoing edges for any role.
		StatusInUse:    {},
		StatusArchived: {},
	}

	for status, roleEdges := range edges {
		admin := append([]Status(nil), roleEdges[RoleAdmin]...)
		for role, targets := range roleEdges {
			if role == RoleAdmin {
				continue
			}
			for _, target := range targets {
				if !containsStatus(admin, target) {
					admin = append(admin, target)
				}
			}
		}
		if len(admin) > 0 {
			edges[status][RoleAdmin] = admin
		}
	}

	return &Graph{edges: edges}
}

// Contains reports whether status is a vertex of the graph.
func (g *Graph) Contains(status Status) bool {
	_, ok := g.edges[status]
	return ok
}

// IsTerminal reports whether status has no outgoing edges for any role.
func (g *Graph) IsTerminal(status Status) bool {
	roleEdges, ok := g.edges[status]
	if !ok {
		return false
	}
	for _, targets := range roleEdges {
		if len(targets) > 0 {
			return false
		}
	}
	return true
}

// Allowed returns the legal targets for (status, role).
func (g *Graph) Allowed(status Status, role Role) []Status {
	roleEdges, ok := g.edges[status]
	if !ok {
		return nil
	}
	return append([]Status(nil), roleEdges[role]...)
}

func containsStatus(set []Status, status Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
