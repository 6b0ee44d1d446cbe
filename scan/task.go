// Copyright 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/googlegenomics/regionscan/bgzf"
	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/index"
)

// File names the pair of objects holding a coordinate indexed genomic file.
type File struct {
	// Data and Index are object URLs understood by the configured storage
	// backends.
	Data  string
	Index string

	// Size is the compressed size of the data object, when known.  It is
	// only used to balance partitions of whole-file tasks.
	Size uint64
}

// Task is one independent unit of scan work: a byte range of a single object
// together with the region its records must be filtered against.  Tasks
// share no mutable state, so any number of them may execute concurrently.
type Task struct {
	Object string

	// Range is the compressed byte range to fetch.  A nil range means the
	// whole object, which is the fallback when no region restricts the
	// scan.
	Range *ByteRange

	// Start is the virtual address of the first record in Range.
	Start bgzf.Address

	// Region bounds the records this task may emit.
	Region genomics.Region

	// Size estimates the compressed bytes this task will read.
	Size uint64
}

// An IndexLoader fetches and decodes the coordinate index stored at an
// object URL.
type IndexLoader interface {
	LoadIndex(ctx context.Context, url string) (*index.Index, error)
}

// LoaderFunc adapts a function to the IndexLoader interface.
type LoaderFunc func(ctx context.Context, url string) (*index.Index, error)

func (f LoaderFunc) LoadIndex(ctx context.Context, url string) (*index.Index, error) {
	return f(ctx, url)
}

// A ReferenceNamer reads the reference name table of a data object.  It is
// needed for index formats that do not store names themselves.
type ReferenceNamer interface {
	ReferenceNames(ctx context.Context, url string) ([]string, error)
}

// Planner turns regions and file descriptors into scan tasks.  Loaded
// indexes and name tables are cached for the lifetime of the planner, so a
// single planner should be reused across queries over the same files.
// Planner is safe for concurrent use.
type Planner struct {
	loader IndexLoader
	namer  ReferenceNamer

	// SizeLimit, when non-zero, is a soft cap on the compressed bytes of a
	// single planned range; larger merged chunks are split into separate
	// tasks.
	SizeLimit uint64

	mu      sync.Mutex
	indexes map[string]*index.Index
	names   map[string][]string
}

// NewPlanner returns a planner using loader for index objects.  The namer
// may be nil when every index carries its own name table.
func NewPlanner(loader IndexLoader, namer ReferenceNamer) *Planner {
	return &Planner{
		loader:  loader,
		namer:   namer,
		indexes: make(map[string]*index.Index),
		names:   make(map[string][]string),
	}
}

// Plan returns one task per planned byte range of each file, in ascending
// range order within a file.  An empty region name disables index planning
// and yields a single whole-file task per file.
func (p *Planner) Plan(ctx context.Context, region genomics.Region, files []File) ([]Task, error) {
	var tasks []Task
	for _, file := range files {
		if region.Name == "" {
			tasks = append(tasks, Task{Object: file.Data, Region: region, Size: file.Size})
			continue
		}

		idx, err := p.index(ctx, file.Index)
		if err != nil {
			return nil, fmt.Errorf("loading index %q: %w", file.Index, err)
		}
		names, err := p.referenceNames(ctx, file.Data, idx)
		if err != nil {
			return nil, fmt.Errorf("reading reference names of %q: %w", file.Data, err)
		}

		plans, err := PlanChunks(region, idx, names, p.SizeLimit)
		if err != nil {
			return nil, err
		}
		for _, plan := range plans {
			r := plan.Range
			tasks = append(tasks, Task{
				Object: file.Data,
				Range:  &r,
				Start:  plan.Start,
				Region: region,
				Size:   r.Size(),
			})
		}
	}
	return tasks, nil
}

func (p *Planner) index(ctx context.Context, url string) (*index.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.indexes[url]; ok {
		return idx, nil
	}
	idx, err := p.loader.LoadIndex(ctx, url)
	if err != nil {
		return nil, err
	}
	p.indexes[url] = idx
	return idx, nil
}

func (p *Planner) referenceNames(ctx context.Context, url string, idx *index.Index) ([]string, error) {
	if len(idx.Names) > 0 || p.namer == nil {
		return idx.Names, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if names, ok := p.names[url]; ok {
		return names, nil
	}
	names, err := p.namer.ReferenceNames(ctx, url)
	if err != nil {
		return nil, err
	}
	p.names[url] = names
	return names, nil
}

// defaultTaskSize stands in for the unknown byte volume of a whole-file
// task when balancing partitions.
const defaultTaskSize = 64 << 20

// Repartition distributes tasks over count groups, balancing the groups by
// estimated byte volume while preserving the relative order of tasks within
// each group.  Each task lands in the least loaded group at the time it is
// placed.  A count of one or less returns all tasks in a single group.
func Repartition(tasks []Task, count int) [][]Task {
	if count <= 1 {
		return [][]Task{append([]Task(nil), tasks...)}
	}

	groups := make([][]Task, count)
	loads := make([]uint64, count)
	for _, task := range tasks {
		lightest := 0
		for i := 1; i < count; i++ {
			if loads[i] < loads[lightest] {
				lightest = i
			}
		}
		groups[lightest] = append(groups[lightest], task)

		size := task.Size
		if size == 0 {
			size = defaultTaskSize
		}
		loads[lightest] += size
	}
	return groups
}
