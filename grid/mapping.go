package grid

import "github.com/ctfgo/ctf/internal/errs"

// Unsharded marks a tensor dimension as not assigned to any grid
// dimension (replicated across it), the way shardy.TensorAxisSpec with a
// nil MeshAxes list means "replicated" in the teacher.
const Unsharded = -1

// DimAssign is one tensor dimension's assignment: which grid dimension it
// is cyclically distributed over (or Unsharded), and its virtualization
// factor v[i] >= 1 (§3).
type DimAssign struct {
	GridDim int
	Virt    int
}

// Mapping is a tensor's assignment onto a ProcessorGrid: §3's "per-
// dimension assignment to logical-grid dimensions and a virtualization
// factor v[i] >= 1."
//
// Mappings are owned by the tensor they describe and replaced atomically
// by the redistribution engine (§3, §5).
type Mapping struct {
	Grid *ProcessorGrid
	Dims []DimAssign
}

// New validates and builds a Mapping for a tensor of the given order.
func New(g *ProcessorGrid, dims []DimAssign) (*Mapping, error) {
	if g == nil {
		return nil, errs.New(errs.InvalidInput, "grid: Mapping requires a non-nil ProcessorGrid")
	}
	seen := make(map[int]int, len(dims))
	for i, d := range dims {
		if d.GridDim == Unsharded {
			continue
		}
		if d.GridDim < 0 || d.GridDim >= g.Rank() {
			return nil, errs.New(errs.ShapeMismatch, "grid: tensor dim %d assigned to out-of-range grid dim %d", i, d.GridDim)
		}
		if d.Virt < 1 {
			return nil, errs.New(errs.InvalidInput, "grid: tensor dim %d has non-positive virtualization factor %d", i, d.Virt)
		}
		if prior, dup := seen[d.GridDim]; dup {
			return nil, errs.New(errs.ShapeMismatch, "grid: grid dim %d assigned to both tensor dims %d and %d", d.GridDim, prior, i)
		}
		seen[d.GridDim] = i
	}
	cp := append([]DimAssign(nil), dims...)
	return &Mapping{Grid: g, Dims: cp}, nil
}

// Order returns the tensor order this mapping describes.
func (m *Mapping) Order() int { return len(m.Dims) }

// Phys returns the physical process count along tensor dimension i (1 if
// unsharded).
func (m *Mapping) Phys(i int) int {
	gd := m.Dims[i].GridDim
	if gd == Unsharded {
		return 1
	}
	return m.Grid.Dim(gd)
}

// Virt returns the virtualization factor along tensor dimension i.
func (m *Mapping) Virt(i int) int { return m.Dims[i].Virt }

// LocalExtent returns ceil(edgeLen / (Phys(i) * Virt(i))), the padded
// local size along tensor dimension i on every process (§3 invariant
// (b): padded local sizes sum to the padded global size).
func (m *Mapping) LocalExtent(i, edgeLen int) int {
	block := m.Phys(i) * m.Virt(i)
	return (edgeLen + block - 1) / block
}

// Equal reports whether two mappings describe the same layout (used by
// redist's identity fast path: redistribute(M, M, t) = t).
func (m *Mapping) Equal(other *Mapping) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil || len(m.Dims) != len(other.Dims) {
		return false
	}
	if !m.Grid.Equal(other.Grid) {
		return false
	}
	for i := range m.Dims {
		if m.Dims[i] != other.Dims[i] {
			return false
		}
	}
	return true
}

// SameGridDims reports whether m and other assign every tensor dimension
// to the same grid dimension, differing only (if at all) in
// virtualization factor -- the condition for redist's fast path (b), a
// local reshuffle instead of a full all-to-all.
func (m *Mapping) SameGridDims(other *Mapping) bool {
	if len(m.Dims) != len(other.Dims) {
		return false
	}
	for i := range m.Dims {
		if m.Dims[i].GridDim != other.Dims[i].GridDim {
			return false
		}
	}
	return true
}

// ProcOwning returns, for the global index g along a dimension of the
// given edge length, the physical-process coordinate and the
// virtualization block index within that process (the per-dimension
// modular-arithmetic decomposition from §4.6: phase = g % phys, then the
// remaining g/phys picks the virtual block).
func (m *Mapping) ProcOwning(i, globalIndex int) (proc, virtBlock, withinBlock int) {
	phys := m.Phys(i)
	proc = globalIndex % phys
	rest := globalIndex / phys
	virt := m.Virt(i)
	virtBlock = rest % virt
	withinBlock = rest / virt
	return proc, virtBlock, withinBlock
}
