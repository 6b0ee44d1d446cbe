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
	"errors"
	"testing"

	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/index"
)

type countingLoader struct {
	idx   *index.Index
	calls int
}

func (l *countingLoader) LoadIndex(_ context.Context, url string) (*index.Index, error) {
	l.calls++
	if l.idx == nil {
		return nil, errors.New("no such index")
	}
	return l.idx, nil
}

func TestPlannerPlan(t *testing.T) {
	loader := &countingLoader{idx: twoChunkIndex()}
	planner := NewPlanner(loader, nil)

	files := []File{
		{Data: "a.bam", Index: "a.bam.bai"},
		{Data: "b.bam", Index: "a.bam.bai"},
	}
	tasks, err := planner.Plan(context.Background(), genomics.Region{Name: "1"}, files)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Wrong task count: got %d, want 2", len(tasks))
	}
	for i, task := range tasks {
		if task.Object != files[i].Data {
			t.Errorf("Task %d object: got %q, want %q", i, task.Object, files[i].Data)
		}
		if task.Range == nil || *task.Range != (ByteRange{0, 2001}) {
			t.Errorf("Task %d range: got %v, want [0, 2001)", i, task.Range)
		}
		if task.Size != 2001 {
			t.Errorf("Task %d size: got %d, want 2001", i, task.Size)
		}
		if task.Region != (genomics.Region{Name: "1"}) {
			t.Errorf("Task %d region: got %v, want reference 1", i, task.Region)
		}
	}
	if loader.calls != 1 {
		t.Errorf("Index loaded %d times, want 1 (shared URL should be cached)", loader.calls)
	}

	// A second plan over the same files must reuse the cache.
	if _, err := planner.Plan(context.Background(), genomics.Region{Name: "1", Start: 100, End: 200}, files); err != nil {
		t.Fatalf("Second Plan() failed: %v", err)
	}
	if loader.calls != 1 {
		t.Errorf("Index loaded %d times after second plan, want 1", loader.calls)
	}
}

func TestPlannerPlan_WholeFile(t *testing.T) {
	loader := &countingLoader{}
	planner := NewPlanner(loader, nil)

	files := []File{{Data: "a.bam", Index: "a.bam.bai", Size: 1 << 30}}
	tasks, err := planner.Plan(context.Background(), genomics.Region{}, files)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Wrong task count: got %d, want 1", len(tasks))
	}
	if tasks[0].Range != nil {
		t.Errorf("Whole-file task has range %v, want nil", tasks[0].Range)
	}
	if tasks[0].Size != 1<<30 {
		t.Errorf("Task size: got %d, want %d", tasks[0].Size, 1<<30)
	}
	if loader.calls != 0 {
		t.Errorf("Index loaded %d times without a region, want 0", loader.calls)
	}
}

func TestPlannerPlan_LoaderError(t *testing.T) {
	planner := NewPlanner(&countingLoader{}, nil)
	files := []File{{Data: "a.bam", Index: "missing.bai"}}
	if _, err := planner.Plan(context.Background(), genomics.Region{Name: "1"}, files); err == nil {
		t.Fatal("Plan() succeeded with a failing index loader")
	}
}

type staticNamer []string

func (n staticNamer) ReferenceNames(context.Context, string) ([]string, error) {
	return []string(n), nil
}

func TestPlannerPlan_NamesFromData(t *testing.T) {
	idx := twoChunkIndex()
	idx.Names = nil
	planner := NewPlanner(&countingLoader{idx: idx}, staticNamer{"1", "2"})

	tasks, err := planner.Plan(context.Background(), genomics.Region{Name: "1"}, []File{{Data: "a.bam", Index: "a.bai"}})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Wrong task count: got %d, want 1", len(tasks))
	}
}

func sized(sizes ...uint64) []Task {
	tasks := make([]Task, len(sizes))
	for i, size := range sizes {
		tasks[i] = Task{Object: "a.bam", Size: size}
	}
	return tasks
}

func TestRepartition(t *testing.T) {
	tasks := sized(6, 5, 4, 3, 2, 1)

	groups := Repartition(tasks, 2)
	if len(groups) != 2 {
		t.Fatalf("Wrong group count: got %d, want 2", len(groups))
	}

	var total int
	for _, group := range groups {
		total += len(group)
		for i := 1; i < len(group); i++ {
			if group[i].Size > group[i-1].Size {
				t.Errorf("Group order not preserved: %d after %d", group[i].Size, group[i-1].Size)
			}
		}
	}
	if total != len(tasks) {
		t.Errorf("Tasks lost in repartition: got %d, want %d", total, len(tasks))
	}

	loads := make([]uint64, len(groups))
	for i, group := range groups {
		for _, task := range group {
			loads[i] += task.Size
		}
	}
	if diff := int64(loads[0]) - int64(loads[1]); diff < -6 || diff > 6 {
		t.Errorf("Unbalanced groups: loads %v", loads)
	}
}

func TestRepartition_SingleGroup(t *testing.T) {
	tasks := sized(1, 2, 3)
	for _, count := range []int{1, 0, -1} {
		groups := Repartition(tasks, count)
		if len(groups) != 1 {
			t.Fatalf("Repartition(%d) produced %d groups, want 1", count, len(groups))
		}
		if len(groups[0]) != len(tasks) {
			t.Errorf("Repartition(%d) group holds %d tasks, want %d", count, len(groups[0]), len(tasks))
		}
		for i := range tasks {
			if groups[0][i].Size != tasks[i].Size {
				t.Errorf("Repartition(%d) reordered tasks", count)
			}
		}
	}
}

func TestRepartition_UnknownSizes(t *testing.T) {
	// A whole-file task of unknown size should weigh far more than small
	// ranged tasks, pulling them all into the other group.
	tasks := append(sized(0), sized(10, 10, 10)...)
	groups := Repartition(tasks, 2)
	if len(groups[0]) != 1 {
		t.Errorf("Whole-file group holds %d tasks, want 1", len(groups[0]))
	}
	if len(groups[1]) != 3 {
		t.Errorf("Ranged group holds %d tasks, want 3", len(groups[1]))
	}
}
