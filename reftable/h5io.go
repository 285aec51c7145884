package reftable

import (
	"fmt"
	"path"
	"reflect"

	"github.com/robert-malhotra/go-reftable/hdf5"
)

// Names of the group attributes carrying table-level experiment metadata.
const (
	AttrExperimentIDs = "experiment_ids"
	AttrIdentifiers   = "identifiers"
)

// DatasetsInGroup returns the paths of all datasets directly under groupPath
// (non-recursive). A missing group is not an error: it yields an empty list
// and a warning, since files may simply predate the data being looked for.
func DatasetsInGroup(f *hdf5.File, groupPath string) ([]string, error) {
	return datasetsInGroup(f, groupPath, defaultLogger)
}

func datasetsInGroup(f *hdf5.File, groupPath string, logger *Logger) ([]string, error) {
	g, err := f.OpenGroup(groupPath)
	if err != nil {
		logger.Warn("missing group, skipping", "group", groupPath)
		return nil, nil
	}

	members, err := g.Members()
	if err != nil {
		return nil, fmt.Errorf("listing group %s: %w", groupPath, err)
	}

	prefix := hdf5.CleanPath(groupPath)
	var datasets []string
	for _, name := range members {
		if _, err := g.OpenDataset(name); err != nil {
			continue // subgroup or unreadable entry
		}
		datasets = append(datasets, path.Join(prefix, name))
	}
	return datasets, nil
}

// DatasetsInGroupRecursive returns the paths of all datasets in the subtree
// rooted at groupPath. A visited set keeps soft-linked group cycles from
// looping the traversal. A missing group yields an empty list and a warning.
func DatasetsInGroupRecursive(f *hdf5.File, groupPath string) ([]string, error) {
	return datasetsInGroupRecursive(f, groupPath, defaultLogger)
}

func datasetsInGroupRecursive(f *hdf5.File, groupPath string, logger *Logger) ([]string, error) {
	g, err := f.OpenGroup(groupPath)
	if err != nil {
		logger.Warn("missing group, skipping", "group", groupPath)
		return nil, nil
	}

	var datasets []string
	visited := make(map[string]bool)
	if err := collectDatasets(g, hdf5.CleanPath(groupPath), visited, &datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// collectDatasets walks a group subtree, appending dataset paths in
// traversal order.
func collectDatasets(g *hdf5.Group, prefix string, visited map[string]bool, datasets *[]string) error {
	if visited[prefix] {
		return nil
	}
	visited[prefix] = true

	members, err := g.Members()
	if err != nil {
		return fmt.Errorf("listing group %s: %w", prefix, err)
	}

	for _, name := range members {
		childPath := path.Join(prefix, name)

		if sub, err := g.OpenGroup(name); err == nil {
			if err := collectDatasets(sub, childPath, visited, datasets); err != nil {
				return err
			}
			continue
		}

		if _, err := g.OpenDataset(name); err == nil {
			*datasets = append(*datasets, childPath)
		}
	}
	return nil
}

// ReadTyped reads the dataset at datasetPath into a flat buffer plus its
// shape. The on-disk element size must match the size of T; a mismatch is a
// type error, never a reinterpreted read.
func ReadTyped[T Scalar](f *hdf5.File, datasetPath string) ([]T, []uint64, error) {
	ds, err := f.OpenDataset(datasetPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset %s: %w", datasetPath, err)
	}

	var zero T
	want := int(reflect.TypeOf(zero).Size())
	if ds.DtypeSize() != want {
		return nil, nil, fmt.Errorf("dataset %s: %w: on-disk element size %d, want %d",
			datasetPath, ErrTypeMismatch, ds.DtypeSize(), want)
	}

	shape := ds.Shape()
	if len(shape) == 0 {
		return nil, nil, fmt.Errorf("dataset %s: %w: scalar dataspace", datasetPath, ErrInvalidShape)
	}

	var data []T
	if err := ds.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("reading dataset %s: %w", datasetPath, err)
	}

	return data, append([]uint64(nil), shape...), nil
}

// ReadFlat reads the dataset at datasetPath into a flat buffer, discarding
// shape metadata.
func ReadFlat[T Scalar](f *hdf5.File, datasetPath string) ([]T, error) {
	data, _, err := ReadTyped[T](f, datasetPath)
	return data, err
}

// WriteTyped creates a dataset called name under g holding the given flat
// buffer with the given shape. A trailing unit dimension is canonicalized:
// shape [N,1] is stored as [N], the conventional layout for single-component
// columns.
func WriteTyped[T Scalar](g *hdf5.Group, name string, data []T, shape []uint64) error {
	if len(shape) == 2 && shape[1] == 1 {
		shape = shape[:1]
	}

	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	if uint64(len(data)) != n {
		return fmt.Errorf("dataset %s: %w: have %d values, shape %v needs %d",
			name, ErrLengthMismatch, len(data), shape, n)
	}

	if _, err := g.CreateDatasetWithShape(name, data, shape); err != nil {
		return fmt.Errorf("writing dataset %s: %w", name, err)
	}
	return nil
}

// ReadExperimentMetadata reads the experiment_ids and identifiers attributes
// from g. Either attribute may be absent (files predating metadata support);
// absence yields an empty list, not an error.
func ReadExperimentMetadata(g *hdf5.Group) ([]uint64, []string, error) {
	var ids []uint64
	var identifiers []string

	if attr := g.Attr(AttrExperimentIDs); attr != nil {
		if err := attr.Read(&ids); err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", AttrExperimentIDs, err)
		}
	}

	if attr := g.Attr(AttrIdentifiers); attr != nil {
		vals, err := attr.ReadString()
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", AttrIdentifiers, err)
		}
		identifiers = vals
	}

	return ids, identifiers, nil
}

// WriteExperimentMetadata writes the experiment_ids and identifiers
// attributes on g. Both lists must be non-empty; they are written together
// or not at all.
func WriteExperimentMetadata(g *hdf5.Group, ids []uint64, identifiers []string) error {
	if len(ids) == 0 || len(identifiers) == 0 {
		return ErrEmptyMetadata
	}

	if err := g.SetAttr(AttrExperimentIDs, ids); err != nil {
		return fmt.Errorf("writing %s: %w", AttrExperimentIDs, err)
	}
	if err := g.SetAttr(AttrIdentifiers, identifiers); err != nil {
		return fmt.Errorf("writing %s: %w", AttrIdentifiers, err)
	}
	return nil
}

// TraverseOrCreateGroups opens or creates every component of the
// slash-separated groupPath under the file's root, returning the final
// group. A bare "/" (or a path that is empty after stripping slashes)
// returns the root itself.
func TraverseOrCreateGroups(f *hdf5.File, groupPath string) (*hdf5.Group, error) {
	g := f.Root()
	for _, name := range hdf5.SplitPath(groupPath) {
		next, err := g.OpenOrCreateGroup(name)
		if err != nil {
			return nil, fmt.Errorf("creating group %q in %s: %w", name, groupPath, err)
		}
		g = next
	}
	return g, nil
}
