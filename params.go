package dcgan_go

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Float Data type of every tensor in networks
var Float = gorgonia.Float32

// ParamSet Ordered named storage of network tensors which lives outside of any expression graph.
//
// Graph nodes get their own copies of these values (see Network.Push / Network.Pull),
// so the same ParamSet could be bound to several graphs at once.
//
type ParamSet struct {
	names  []string
	values map[string]*tensor.Dense
}

// ParamRecord Serializable form of single named tensor
type ParamRecord struct {
	Name  string
	Shape []int
	Data  []float32
}

// NewParamSet Constructor for ParamSet
func NewParamSet() *ParamSet {
	return &ParamSet{
		values: make(map[string]*tensor.Dense),
	}
}

// Add Registers tensor under provided name. Names must be unique.
func (ps *ParamSet) Add(name string, t *tensor.Dense) error {
	if _, ok := ps.values[name]; ok {
		return fmt.Errorf("Parameter '%s' is already registered", name)
	}
	if t.Dtype() != Float {
		return fmt.Errorf("Parameter '%s' has dtype %v, but %v is expected", name, t.Dtype(), Float)
	}
	ps.names = append(ps.names, name)
	ps.values[name] = t
	return nil
}

// Get Returns tensor for provided name
func (ps *ParamSet) Get(name string) (*tensor.Dense, bool) {
	t, ok := ps.values[name]
	return t, ok
}

// Names Returns names in registration order
func (ps *ParamSet) Names() []string {
	names := make([]string, len(ps.names))
	copy(names, ps.names)
	return names
}

// Len Returns number of registered tensors
func (ps *ParamSet) Len() int {
	return len(ps.names)
}

// Clone Deep copy of ParamSet
func (ps *ParamSet) Clone() *ParamSet {
	cloned := NewParamSet()
	for _, name := range ps.names {
		cloned.names = append(cloned.names, name)
		cloned.values[name] = ps.values[name].Clone().(*tensor.Dense)
	}
	return cloned
}

// Records Exports tensors into serializable form
func (ps *ParamSet) Records() []ParamRecord {
	records := make([]ParamRecord, 0, len(ps.names))
	for _, name := range ps.names {
		t := ps.values[name]
		data := make([]float32, t.Shape().TotalSize())
		copy(data, t.Data().([]float32))
		records = append(records, ParamRecord{
			Name:  name,
			Shape: []int(t.Shape().Clone()),
			Data:  data,
		})
	}
	return records
}

// Load Copies values from records into already registered tensors. Every registered name must be present with the same shape.
func (ps *ParamSet) Load(records []ParamRecord) error {
	byName := make(map[string]ParamRecord, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}
	if len(byName) != len(ps.names) {
		return fmt.Errorf("Got %d records, but %d parameters are registered", len(byName), len(ps.names))
	}
	for _, name := range ps.names {
		r, ok := byName[name]
		if !ok {
			return fmt.Errorf("Record for parameter '%s' is missing", name)
		}
		t := ps.values[name]
		if !t.Shape().Eq(tensor.Shape(r.Shape)) {
			return fmt.Errorf("Record '%s' has shape %v, but parameter has shape %v", name, r.Shape, t.Shape())
		}
		if len(r.Data) != t.Shape().TotalSize() {
			return fmt.Errorf("Record '%s' has %d values, but %d expected", name, len(r.Data), t.Shape().TotalSize())
		}
		copy(t.Data().([]float32), r.Data)
	}
	return nil
}

// CopyFrom Copies values of another ParamSet with the same layout
func (ps *ParamSet) CopyFrom(src *ParamSet) error {
	return ps.Load(src.Records())
}

// copyValue Copies backing data of src into dst. Both must hold float32 values of the same size.
func copyValue(dst, src gorgonia.Value) error {
	if dst == nil || src == nil {
		return fmt.Errorf("Can't copy nil value")
	}
	dstData, ok := dst.Data().([]float32)
	if !ok {
		return fmt.Errorf("Destination value has type %T, but []float32 is expected", dst.Data())
	}
	srcData, ok := src.Data().([]float32)
	if !ok {
		return fmt.Errorf("Source value has type %T, but []float32 is expected", src.Data())
	}
	if len(dstData) != len(srcData) {
		return fmt.Errorf("Can't copy %d values into %d values", len(srcData), len(dstData))
	}
	copy(dstData, srcData)
	return nil
}
