//go:build windows

package webgpu

import (
	"fmt"
	"strings"

	"github.com/born-ml/nnue/internal/kernels"
)

// WGSL compute shaders for the kernel catalog. Binding 0 is the Params
// uniform shared by every kernel; the shader's buffers follow in binding
// order. Feats are packed as our | opp << 16 and buckets are widened to u32.

// paramsDecl mirrors kernels.Params.
const paramsDecl = `
struct Params {
    size: u32,
    batch_size: u32,
    input_size: u32,
    output_size: u32,
    max_active: u32,
    m: u32,
    n: u32,
    flags: u32,
    power: f32,
    decay: f32,
    adj: f32,
    rate: f32,
    ft_reg: f32,
    beta1: f32,
    beta2: f32,
    epsilon: f32,
    max_weight: f32,
    pad0: f32,
    pad1: f32,
    pad2: f32,
}
@group(0) @binding(0) var<uniform> params: Params;

const SENTINEL: u32 = 0xFFFFu;
const DECAY_AFTER_STEP: u32 = 1u;
const SCALE_BY_POWER: u32 = 2u;
`

// mainHead opens the entry point; i is the linear invocation index.
const mainHead = `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) nwg: vec3<u32>) {
    let i = gid.y * nwg.x * 256u + gid.x;
`

// shaderSource is a kernel's buffer declarations and main body.
type shaderSource struct {
	buffers []string
	body    string
}

func (s shaderSource) bindings() int {
	return len(s.buffers)
}

func (s shaderSource) code() string {
	var b strings.Builder
	b.WriteString(paramsDecl)
	for i, decl := range s.buffers {
		fmt.Fprintf(&b, "@group(0) @binding(%d) %s;\n", i+1, decl)
	}
	b.WriteString(mainHead)
	b.WriteString(s.body)
	b.WriteString("}\n")
	return b.String()
}

const (
	readF32  = "var<storage, read> %s: array<f32>"
	writeF32 = "var<storage, read_write> %s: array<f32>"
	readU32  = "var<storage, read> %s: array<u32>"
)

func decl(format, name string) string {
	return fmt.Sprintf(format, name)
}

// elementwise builds a two-buffer kernel: src is read, dst is read-write.
func elementwise(stmt string) shaderSource {
	return shaderSource{
		buffers: []string{decl(readF32, "src"), decl(writeF32, "dst")},
		body: `
    if (i >= params.size) {
        return;
    }
    let x = src[i];
` + stmt,
	}
}

func sparseForward(perspectives int) shaderSource {
	body := `
    let osz = params.output_size;
    if (i >= params.batch_size * osz) {
        return;
    }
    let sample = i / osz;
    let j = i % osz;
    var our = biases[j];
    var opp = biases[j];
    let base = sample * params.max_active;
    for (var k: u32 = 0u; k < params.max_active; k = k + 1u) {
        let f = feats[base + k];
        let o = f & 0xFFFFu;
        if (o == SENTINEL) {
            break;
        }
        our = our + weights[o * osz + j];
`
	if perspectives == 2 {
		body += `        opp = opp + weights[(f >> 16u) * osz + j];
    }
    dst[sample * 2u * osz + j] = our;
    dst[sample * 2u * osz + osz + j] = opp;
`
	} else {
		body += `    }
    dst[sample * osz + j] = our;
`
	}
	return shaderSource{
		buffers: []string{
			decl(readF32, "weights"),
			decl(readF32, "biases"),
			decl(readU32, "feats"),
			decl(writeF32, "dst"),
		},
		body: body,
	}
}

func sparseBackward(perspectives int) shaderSource {
	body := `
    let osz = params.output_size;
    if (i >= osz) {
        return;
    }
    let j = i;
`
	if perspectives == 2 {
		body += `    let stride = 2u * osz;
    var bsum = bgrad[j];
    for (var s: u32 = 0u; s < params.batch_size; s = s + 1u) {
        let base = s * stride;
        let e_our = errs[base + j] + params.ft_reg * acts[base + j];
        let e_opp = errs[base + osz + j] + params.ft_reg * acts[base + osz + j];
        bsum = bsum + e_our + e_opp;
        let fbase = s * params.max_active;
        for (var k: u32 = 0u; k < params.max_active; k = k + 1u) {
            let f = feats[fbase + k];
            let o = f & 0xFFFFu;
            if (o == SENTINEL) {
                break;
            }
            wgrad[o * osz + j] = wgrad[o * osz + j] + e_our;
            let p = f >> 16u;
            wgrad[p * osz + j] = wgrad[p * osz + j] + e_opp;
        }
    }
    bgrad[j] = bsum;
`
	} else {
		body += `    var bsum = bgrad[j];
    for (var s: u32 = 0u; s < params.batch_size; s = s + 1u) {
        let base = s * osz;
        let e = errs[base + j] + params.ft_reg * acts[base + j];
        bsum = bsum + e;
        let fbase = s * params.max_active;
        for (var k: u32 = 0u; k < params.max_active; k = k + 1u) {
            let o = feats[fbase + k] & 0xFFFFu;
            if (o == SENTINEL) {
                break;
            }
            wgrad[o * osz + j] = wgrad[o * osz + j] + e;
        }
    }
    bgrad[j] = bsum;
`
	}
	return shaderSource{
		buffers: []string{
			decl(writeF32, "wgrad"),
			decl(writeF32, "bgrad"),
			decl(readU32, "feats"),
			decl(readF32, "errs"),
			decl(readF32, "acts"),
		},
		body: body,
	}
}

// shaderSources is the library compiled by New, keyed by kernel name.
var shaderSources = map[string]shaderSource{
	kernels.ActivateReLU.String(): elementwise(`    dst[i] = max(x, 0.0);
`),
	kernels.ActivateCReLU.String(): elementwise(`    dst[i] = clamp(x, 0.0, 1.0);
`),
	kernels.ActivateSCReLU.String(): elementwise(`    let c = clamp(x, 0.0, 1.0);
    dst[i] = c * c;
`),
	kernels.BackpropReLU.String(): elementwise(`    if (x <= 0.0) {
        dst[i] = 0.0;
    }
`),
	kernels.BackpropCReLU.String(): elementwise(`    if (x <= 0.0 || x >= 1.0) {
        dst[i] = 0.0;
    }
`),
	kernels.BackpropSCReLU.String(): elementwise(`    if (x > 0.0 && x < 1.0) {
        dst[i] = dst[i] * 2.0 * x;
    } else {
        dst[i] = 0.0;
    }
`),
	kernels.AddTo.String(): elementwise(`    dst[i] = dst[i] + x;
`),

	kernels.SigmoidMPE.String(): {
		buffers: []string{decl(writeF32, "outs"), decl(readF32, "results"), decl(writeF32, "loss")},
		body: `
    if (i >= params.size) {
        return;
    }
    let s = 1.0 / (1.0 + exp(-outs[i]));
    let d = s - results[i];
    let a = abs(d);
    var g = s * (1.0 - s) * pow(a, params.power - 1.0);
    if ((params.flags & SCALE_BY_POWER) != 0u) {
        g = g * params.power;
    }
    if (d < 0.0) {
        g = -g;
    } else if (d == 0.0) {
        g = 0.0;
    }
    outs[i] = g;
    loss[i] = select(pow(a, params.power), 0.0, a == 0.0);
`,
	},

	kernels.SparseAffineForward.String():        sparseForward(2),
	kernels.SingleSparseAffineForward.String():  sparseForward(1),
	kernels.SparseAffineBackward.String():       sparseBackward(2),
	kernels.SingleSparseAffineBackward.String(): sparseBackward(1),

	kernels.SplatMulMatrixVector.String(): {
		buffers: []string{decl(readF32, "mat"), decl(readF32, "xs"), decl(writeF32, "ys")},
		body: `
    if (i >= params.batch_size * params.m) {
        return;
    }
    let sample = i / params.m;
    let r = i % params.m;
    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.n; k = k + 1u) {
        sum = sum + mat[r * params.n + k] * xs[sample * params.n + k];
    }
    ys[i] = sum;
`,
	},

	kernels.SplatMulMatrixTVector.String(): {
		buffers: []string{decl(readF32, "mat"), decl(readF32, "ys"), decl(writeF32, "xs")},
		body: `
    if (i >= params.batch_size * params.n) {
        return;
    }
    let sample = i / params.n;
    let c = i % params.n;
    var sum: f32 = 0.0;
    for (var r: u32 = 0u; r < params.m; r = r + 1u) {
        sum = sum + mat[r * params.n + c] * ys[sample * params.m + r];
    }
    xs[i] = sum;
`,
	},

	kernels.ReduceAddMulVectorVectorT.String(): {
		buffers: []string{decl(readF32, "ys"), decl(readF32, "xs"), decl(writeF32, "mat")},
		body: `
    if (i >= params.m) {
        return;
    }
    let r = i;
    for (var c: u32 = 0u; c < params.n; c = c + 1u) {
        var acc = mat[r * params.n + c];
        for (var s: u32 = 0u; s < params.batch_size; s = s + 1u) {
            acc = acc + ys[s * params.m + r] * xs[s * params.n + c];
        }
        mat[r * params.n + c] = acc;
    }
`,
	},

	kernels.ReduceAdd.String(): {
		buffers: []string{decl(readF32, "src"), decl(writeF32, "dst")},
		body: `
    if (i >= params.output_size) {
        return;
    }
    var sum: f32 = 0.0;
    for (var s: u32 = 0u; s < params.batch_size; s = s + 1u) {
        sum = sum + src[s * params.output_size + i];
    }
    dst[i] = sum;
`,
	},

	kernels.Select.String(): {
		buffers: []string{decl(readU32, "bucket_idx"), decl(readF32, "src"), decl(writeF32, "dst")},
		body: `
    let osz = params.output_size;
    if (i >= params.batch_size * osz) {
        return;
    }
    let sample = i / osz;
    let k = i % osz;
    dst[i] = src[sample * params.input_size + bucket_idx[sample] * osz + k];
`,
	},

	kernels.SelectBackprop.String(): {
		buffers: []string{decl(readU32, "bucket_idx"), decl(readF32, "src"), decl(writeF32, "dst")},
		body: `
    let isz = params.input_size;
    let osz = params.output_size;
    if (i >= params.batch_size * isz) {
        return;
    }
    let sample = i / isz;
    let k = i % isz;
    let start = bucket_idx[sample] * osz;
    if (k >= start && k < start + osz) {
        dst[i] = src[sample * osz + k - start];
    } else {
        dst[i] = 0.0;
    }
`,
	},

	kernels.SplatAdd.String(): {
		buffers: []string{decl(readF32, "src"), decl(writeF32, "dst")},
		body: `
    if (i >= params.batch_size * params.size) {
        return;
    }
    dst[i] = dst[i] + src[i % params.size];
`,
	},

	kernels.UpdateWeights.String(): {
		buffers: []string{
			decl(writeF32, "net"),
			decl(writeF32, "mom"),
			decl(writeF32, "vel"),
			decl(readF32, "grads"),
		},
		body: `
    if (i >= params.size) {
        return;
    }
    let g = params.adj * grads[i];
    let m = params.beta1 * mom[i] + (1.0 - params.beta1) * g;
    let v = params.beta2 * vel[i] + (1.0 - params.beta2) * g * g;
    mom[i] = m;
    vel[i] = v;

    let keep = 1.0 - params.decay;
    let after = (params.flags & DECAY_AFTER_STEP) != 0u;
    var w = net[i];
    if (!after) {
        w = w * keep;
    }
    w = w - params.rate * m / (sqrt(v) + params.epsilon);
    if (after) {
        w = w * keep;
    }
    if (params.max_weight > 0.0) {
        w = clamp(w, -params.max_weight, params.max_weight);
    }
    net[i] = w;
`,
	},
}
