// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"errors"
	"slices"
	"testing"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/core"
)

type stubGen struct {
	deps     []string
	expected float64
	params   []*Param
}

func (s *stubGen) Generate(*core.Core, Request) (*data.Dataset, error) { return data.New(s.deps...), nil }
func (s *stubGen) ExpectedEvents(*data.Set) float64                   { return s.expected }
func (s *stubGen) Depends() []string                                  { return s.deps }
func (s *stubGen) Params() []*Param                                   { return s.params }

func leaf(name string, expected float64, deps ...string) *Primitive {
	return NewPrimitive(name, &stubGen{deps: deps, expected: expected})
}

func TestAdditiveModes(t *testing.T) {
	a, b := leaf("a", 10, "x"), leaf("b", 30, "x")
	self := MustAdditive("self", []Model{a, b}, nil)
	if self.Mode() != SelfExtended || self.ExpectedEvents(nil) != 40 {
		t.Fatalf("self-extended: mode=%v expected=%v", self.Mode(), self.ExpectedEvents(nil))
	}
	frac := MustAdditive("frac", []Model{a, b}, []*Param{NewParam("f", 0.3, 0, 1)})
	if frac.Mode() != Fractions || frac.ExpectedEvents(nil) != 0 {
		t.Fatalf("fractions: mode=%v", frac.Mode())
	}
	lit := MustAdditive("lit", []Model{a, b}, []*Param{NewParam("n1", 100, 0, 1e6), NewParam("n2", 50, 0, 1e6)})
	if lit.Mode() != Literal || lit.ExpectedEvents(nil) != 150 {
		t.Fatalf("literal: mode=%v expected=%v", lit.Mode(), lit.ExpectedEvents(nil))
	}
	if _, err := NewAdditive("bad", []Model{a, b, leaf("c", 0)}, []*Param{NewConst("k", 1)}); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("expected InvalidConfig for wrong coefficient count, got %v", err)
	}
	if _, err := NewAdditive("empty", nil, nil); err == nil {
		t.Fatalf("empty additive should fail")
	}
}

func TestDependsAndExpected(t *testing.T) {
	mx := leaf("mx", 0, "x")
	my := leaf("my", 0, "y", "x")
	prod := NewProduct("p", mx, my)
	if got := prod.Depends(); !slices.Equal(got, []string{"x", "y"}) {
		t.Fatalf("product depends = %v", got)
	}
	ext := NewExtended("e", prod, NewParam("n", 250, 0, 1000))
	if ext.ExpectedEvents(nil) != 250 || !Decomposable(ext) || Decomposable(mx) {
		t.Fatalf("extended expectation/decomposable broken")
	}
	if NewProduct("p2", mx, ext).ExpectedEvents(nil) != 250 {
		t.Fatalf("product should take the extended factor expectation")
	}
}

func TestSimultaneous(t *testing.T) {
	cat := data.NewCategory("sample", "a", "b")
	sim := MustSimultaneous("sim", cat, map[string]Model{
		"a": NewExtended("ea", leaf("la", 0, "x"), NewParam("na", 10, 0, 100)),
		"b": NewExtended("eb", leaf("lb", 0, "x"), NewParam("nb", 20, 0, 100)),
	})
	if sim.ExpectedEvents(nil) != 30 {
		t.Fatalf("simultaneous expectation = %v", sim.ExpectedEvents(nil))
	}
	if got := sim.Depends(); !slices.Equal(got, []string{"sample", "x"}) {
		t.Fatalf("depends = %v", got)
	}
	if _, ok := sim.Child(cat.State(1)); !ok {
		t.Fatalf("child for state b missing")
	}
	if _, err := NewSimultaneous("bad", cat, map[string]Model{"zz": leaf("l", 0)}); err == nil {
		t.Fatalf("unknown state should fail")
	}
	sup := data.NewSuperCategory("idx", cat, data.NewCategory("run", "r1"))
	s2 := MustSimultaneous("s2", sup, nil)
	if got := s2.IndexColumns(); !slices.Equal(got, []string{"idx", "sample", "run"}) {
		t.Fatalf("index columns = %v", got)
	}
}

func TestParamsAndFind(t *testing.T) {
	shape := NewParam("mu", 5, 0, 10)
	sig := NewPrimitive("sig", &stubGen{deps: []string{"m"}, params: []*Param{shape}})
	bkg := leaf("bkg", 0, "m")
	nsig := NewParam("nsig", 100, 0, 1000)
	nbkg := NewParam("nbkg", 900, 0, 10000)
	top := MustAdditive("top", []Model{NewExtended("esig", sig, nsig), NewExtended("ebkg", bkg, nbkg)}, nil)

	names := []string{}
	for _, p := range Params(top) {
		names = append(names, p.Name)
	}
	if !slices.Equal(names, []string{"nsig", "mu", "nbkg"}) {
		t.Fatalf("params = %v", names)
	}
	if m, ok := Find(top, "bkg"); !ok || m != bkg {
		t.Fatalf("Find(bkg) failed")
	}
	if _, ok := Find(top, "nothing"); ok {
		t.Fatalf("Find should miss")
	}
	if err := shape.Set(11); err == nil || shape.Value != 5 {
		t.Fatalf("out of range Set should fail without mutation")
	}
	if err := NewParam("free", 0, 0, 0).Set(-1e9); err != nil {
		t.Fatalf("unbounded param should accept any value: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r1 := NewRegistry()
	build := func() (*Workspace, error) {
		return &Workspace{Model: leaf("l", 1, "x"), Observables: data.NewSet(data.NewReal("x", 0, 1))}, nil
	}
	if err := r1.Register("one", build); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r1.Register("one", build); err == nil {
		t.Fatalf("duplicate name should fail")
	}
	r2 := NewRegistry()
	_ = r2.Register("two", build)
	merged, err := MergeRegistry(r1, nil, r2)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !slices.Equal(merged.Names(), []string{"one", "two"}) {
		t.Fatalf("names = %v", merged.Names())
	}
	if _, err := MergeRegistry(r1, r1); err == nil {
		t.Fatalf("merging duplicates should fail")
	}
	if _, err := merged.Build("three"); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("unknown model should be InvalidConfig: %v", err)
	}
}
