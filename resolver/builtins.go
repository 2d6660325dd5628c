package resolver

import "strings"

// builtinTypes are the predeclared type generators and type names.
var builtinTypes = toSet(
	"bool", "i32", "u32", "f32", "f16",
	"vec2", "vec3", "vec4",
	"vec2f", "vec3f", "vec4f", "vec2i", "vec3i", "vec4i",
	"vec2u", "vec3u", "vec4u", "vec2h", "vec3h", "vec4h",
	"mat2x2", "mat2x3", "mat2x4", "mat3x2", "mat3x3", "mat3x4", "mat4x2", "mat4x3", "mat4x4",
	"mat2x2f", "mat2x3f", "mat2x4f", "mat3x2f", "mat3x3f", "mat3x4f", "mat4x2f", "mat4x3f", "mat4x4f",
	"mat2x2h", "mat2x3h", "mat2x4h", "mat3x2h", "mat3x3h", "mat3x4h", "mat4x2h", "mat4x3h", "mat4x4h",
	"array", "atomic", "ptr",
	"sampler", "sampler_comparison",
	"texture_1d", "texture_2d", "texture_2d_array", "texture_3d", "texture_cube", "texture_cube_array",
	"texture_multisampled_2d",
	"texture_depth_2d", "texture_depth_2d_array", "texture_depth_cube", "texture_depth_cube_array",
	"texture_depth_multisampled_2d",
	"texture_storage_1d", "texture_storage_2d", "texture_storage_2d_array", "texture_storage_3d",
	"texture_external",
)

// builtinFunctions are the predeclared functions.
var builtinFunctions = toSet(
	"abs", "acos", "acosh", "all", "any", "arrayLength", "asin", "asinh", "atan", "atan2", "atanh",
	"bitcast", "ceil", "clamp", "cos", "cosh", "countLeadingZeros", "countOneBits", "countTrailingZeros",
	"cross", "degrees", "determinant", "distance", "dot", "dpdx", "dpdxCoarse", "dpdxFine",
	"dpdy", "dpdyCoarse", "dpdyFine", "exp", "exp2", "extractBits", "faceForward",
	"firstLeadingBit", "firstTrailingBit", "floor", "fma", "fract", "frexp", "fwidth",
	"fwidthCoarse", "fwidthFine", "insertBits", "inverseSqrt", "ldexp", "length", "log", "log2",
	"max", "min", "mix", "modf", "normalize", "pack2x16float", "pack2x16snorm", "pack2x16unorm",
	"pack4x8snorm", "pack4x8unorm", "pow", "quantizeToF16", "radians", "reflect", "refract",
	"reverseBits", "round", "saturate", "select", "sign", "sin", "sinh", "smoothstep", "sqrt",
	"step", "storageBarrier", "tan", "tanh", "transpose", "trunc",
	"unpack2x16float", "unpack2x16snorm", "unpack2x16unorm", "unpack4x8snorm", "unpack4x8unorm",
	"workgroupBarrier", "workgroupUniformLoad", "textureBarrier",
	"textureDimensions", "textureGather", "textureGatherCompare", "textureLoad", "textureNumLayers",
	"textureNumLevels", "textureNumSamples", "textureSample", "textureSampleBias",
	"textureSampleCompare", "textureSampleCompareLevel", "textureSampleGrad", "textureSampleLevel",
	"textureSampleBaseClampToEdge", "textureStore",
	"atomicLoad", "atomicStore", "atomicAdd", "atomicSub", "atomicMax", "atomicMin", "atomicAnd",
	"atomicOr", "atomicXor", "atomicExchange", "atomicCompareExchangeWeak",
	"atomicStoreMax", "atomicStoreMin",
)

// enumerants are the context-dependent names accepted as template
// arguments: address spaces, access modes and texel formats.
var enumerants = toSet(
	"function", "private", "workgroup", "uniform", "storage", "pixel_local", "push_constant",
	"read", "write", "read_write",
	"rgba8unorm", "rgba8snorm", "rgba8uint", "rgba8sint", "rgba16uint", "rgba16sint",
	"rgba16float", "r32uint", "r32sint", "r32float", "rg32uint", "rg32sint", "rg32float",
	"rgba32uint", "rgba32sint", "rgba32float", "bgra8unorm",
)

// attributesWithNames lists attributes whose arguments are context-dependent
// names rather than expressions.
var attributesWithNames = toSet("builtin", "interpolate", "diagnostic")

func toSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// IsBuiltinType reports whether name is a predeclared type or type generator.
func IsBuiltinType(name string) bool {
	_, ok := builtinTypes[name]
	return ok
}

// IsBuiltinFunction reports whether name is a predeclared function.
func IsBuiltinFunction(name string) bool {
	_, ok := builtinFunctions[name]
	return ok
}

// IsEnumerant reports whether name is an address space, access mode or
// texel format.
func IsEnumerant(name string) bool {
	_, ok := enumerants[name]
	return ok
}

// templateArg says how the i'th template argument of a builtin type
// generator is interpreted.
type templateArg uint8

const (
	templateType templateArg = iota
	templateExpr
	templateEnum
)

func templateArgKind(generator string, i int) templateArg {
	switch {
	case generator == "array":
		if i == 0 {
			return templateType
		}
		return templateExpr
	case generator == "ptr":
		if i == 1 {
			return templateType
		}
		return templateEnum
	case strings.HasPrefix(generator, "texture_storage_"):
		return templateEnum
	}
	return templateType
}
