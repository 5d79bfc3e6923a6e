package dcgan_go

import (
	"encoding/gob"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Snapshot Full training state: enough to continue training exactly where it has been stopped
type Snapshot struct {
	Iteration   int
	LatentDraws int
	Seed        int64
	Iterator    IteratorState

	GeneratorParams     []ParamRecord
	GeneratorStats      []ParamRecord
	DiscriminatorParams []ParamRecord
	DiscriminatorStats  []ParamRecord

	GeneratorOptimizer     AdamState
	DiscriminatorOptimizer AdamState
}

// ModelSnapshot Parameters of single network (no optimizer state)
type ModelSnapshot struct {
	Params []ParamRecord
	Stats  []ParamRecord
}

// SaveSnapshot Writes snapshot into file
func SaveSnapshot(filename string, snap *Snapshot) error {
	return saveGob(filename, snap)
}

// LoadSnapshot Reads snapshot from file
func LoadSnapshot(filename string) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := loadGob(filename, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// SaveModel Writes network's parameters and running statistics into file
func SaveModel(filename string, params, stats *ParamSet) error {
	return saveGob(filename, &ModelSnapshot{
		Params: params.Records(),
		Stats:  stats.Records(),
	})
}

// LoadModel Reads network's parameters and running statistics from file into already registered tensors
func LoadModel(filename string, params, stats *ParamSet) error {
	snap := &ModelSnapshot{}
	if err := loadGob(filename, snap); err != nil {
		return err
	}
	if err := checkRecords(snap.Params, snap.Stats); err != nil {
		return errors.Wrap(err, filename)
	}
	if err := params.Load(snap.Params); err != nil {
		return errors.Wrap(err, "Can't load parameters")
	}
	if err := stats.Load(snap.Stats); err != nil {
		return errors.Wrap(err, "Can't load running statistics")
	}
	return nil
}

// checkRecords Rejects records holding NaN or Inf: training can't continue from such values
func checkRecords(groups ...[]ParamRecord) error {
	for _, records := range groups {
		for _, r := range records {
			if !allFinite(r.Data) {
				return fmt.Errorf("Record '%s' holds non-finite values", r.Name)
			}
		}
	}
	return nil
}

// saveGob Encodes value into temporary file next to target and renames it, so target is never half-written
func saveGob(filename string, v interface{}) error {
	f, err := ioutil.TempFile(filepath.Dir(filename), filepath.Base(filename)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "Can't create temporary file")
	}
	tmpName := f.Name()
	enc := gob.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "Can't encode")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WithStack(err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "Can't move temporary file")
	}
	return nil
}

func loadGob(filename string, v interface{}) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	if err = dec.Decode(v); err != nil {
		return errors.Wrap(err, "Can't decode "+filename)
	}
	return nil
}
