package auth

import "github.com/google/uuid"

// BranchEvaluator decides whether a principal may operate on a branch within
// its tenant. Global roles manage all branches tenant-wide; everyone else is
// limited to their home branch plus explicit grants.
type BranchEvaluator struct {
	matrix *PermissionMatrix
}

func NewBranchEvaluator(matrix *PermissionMatrix) *BranchEvaluator {
	return &BranchEvaluator{matrix: matrix}
}

// CanAccessBranch reports whether the principal may act on targetBranch.
func (e *BranchEvaluator) CanAccessBranch(p *Principal, targetBranch uuid.UUID) bool {
	if p.Role.IsGlobal() {
		return true
	}
	if p.BranchID != nil && *p.BranchID == targetBranch {
		return true
	}
	return p.HasBranchGrant(targetBranch)
}

// CanCrossBranchAccess reports whether listing queries may span all branches.
// When false, results must be restricted to AccessibleBranches; anything
// else is a tenant-data leak, not a cosmetic bug.
func (e *BranchEvaluator) CanCrossBranchAccess(p *Principal) bool {
	if p.Role.IsGlobal() {
		return true
	}
	return e.matrix.RoleSatisfies(p.Role, PermCrossBranch)
}

// AccessibleBranches returns the branch filter set for a scoped principal:
// home branch plus explicit grants. Returns nil for principals that may see
// every branch.
func (e *BranchEvaluator) AccessibleBranches(p *Principal) []uuid.UUID {
	if e.CanCrossBranchAccess(p) {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(p.BranchAccess)+1)
	if p.BranchID != nil {
		ids = append(ids, *p.BranchID)
	}
	for _, b := range p.BranchAccess {
		if p.BranchID == nil || *p.BranchID != b {
			ids = append(ids, b)
		}
	}
	return ids
}
