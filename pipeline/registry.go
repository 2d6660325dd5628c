package pipeline

import (
	"fmt"
	"sort"

	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/ir/transform"
	"github.com/gogpu/wgslcore/types"
)

// Options configures the passes that take settings.
type Options struct {
	Polyfill   transform.BuiltinPolyfill
	PixelLocal transform.PixelLocal
}

type entry struct {
	doc  string
	make func(Options) Pass
}

var registry = map[string]entry{
	"var_for_dynamic_index": {
		doc: "copy composite values indexed dynamically into function-scope variables",
		make: func(Options) Pass {
			return Pass{Name: "var_for_dynamic_index", Run: transform.VarForDynamicIndex}
		},
	},
	"std140": {
		doc: "decompose matCx2 and f16 matrices in uniform buffers into column vectors",
		make: func(Options) Pass {
			return Pass{Name: "std140", ShouldRun: hasSpace(types.SpaceUniform), Run: transform.Std140}
		},
	},
	"atomic_vec2u_to_u64": {
		doc: "retype atomic<vec2<u32>> as atomic<u64>",
		make: func(Options) Pass {
			return Pass{Name: "atomic_vec2u_to_u64", Run: transform.AtomicVec2uToU64}
		},
	},
	"atomic_u64_to_vec2u": {
		doc: "retype atomic<u64> as atomic<vec2<u32>>",
		make: func(Options) Pass {
			return Pass{Name: "atomic_u64_to_vec2u", Run: transform.AtomicU64ToVec2u}
		},
	},
	"builtin_polyfill": {
		doc: "replace builtin calls with equivalent instruction sequences",
		make: func(o Options) Pass {
			return Pass{
				Name:      "builtin_polyfill",
				ShouldRun: func(*ir.Module) bool { return o.Polyfill.Enabled() },
				Run:       o.Polyfill.Run,
			}
		},
	},
	"pixel_local": {
		doc: "lower pixel_local variables to entry point inputs and outputs",
		make: func(o Options) Pass {
			return Pass{Name: "pixel_local", ShouldRun: hasSpace(types.SpacePixelLocal), Run: o.PixelLocal.Run}
		},
	},
}

// hasSpace returns a precondition that holds when the module declares a
// variable in space.
func hasSpace(space types.AddressSpace) func(*ir.Module) bool {
	return func(m *ir.Module) bool {
		for _, inst := range m.Root.Instructions() {
			if v, ok := inst.(*ir.Var); ok && v.Pointer() != nil && v.Pointer().Space == space {
				return true
			}
		}
		return false
	}
}

// Lookup returns the pass registered under name.
func Lookup(name string, opts Options) (Pass, bool) {
	e, ok := registry[name]
	if !ok {
		return Pass{}, false
	}
	return e.make(opts), true
}

// Names returns the registered pass names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns a one-line description of the named pass.
func Describe(name string) string {
	return registry[name].doc
}

// Build resolves names into passes, in the given order.
func Build(names []string, opts Options) ([]Pass, error) {
	passes := make([]Pass, 0, len(names))
	for _, n := range names {
		p, ok := Lookup(n, opts)
		if !ok {
			return nil, fmt.Errorf("unknown pass %q", n)
		}
		passes = append(passes, p)
	}
	return passes, nil
}
