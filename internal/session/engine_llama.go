//go:build llama

package session

/*
#include <stdlib.h>
#include <stdbool.h>
#include <stdint.h>
#include <stddef.h>

// Forward declarations for llama.cpp types and functions.
// These must match llama.h from the linked llama.cpp build.

typedef struct llama_model llama_model;
typedef struct llama_context llama_context;
typedef struct llama_sampler llama_sampler;
typedef int32_t llama_token;
typedef int32_t llama_pos;
typedef int32_t llama_seq_id;

struct llama_model_params {
    int32_t n_gpu_layers;
    int32_t split_mode;
    int32_t main_gpu;
    const float * tensor_split;
    void * progress_callback_user_data;
    bool (* progress_callback)(float progress, void * user_data);
    void * kv_overrides;
    bool vocab_only;
    bool use_mmap;
    bool use_mlock;
    bool check_tensors;
};

struct llama_context_params {
    uint32_t n_ctx;
    uint32_t n_batch;
    uint32_t n_ubatch;
    uint32_t n_seq_max;
    int32_t n_threads;
    int32_t n_threads_batch;
    int32_t rope_scaling_type;
    int32_t pooling_type;
    int32_t attention_type;
    float rope_freq_base;
    float rope_freq_scale;
    float yarn_ext_factor;
    float yarn_attn_factor;
    float yarn_beta_fast;
    float yarn_beta_slow;
    uint32_t yarn_orig_ctx;
    float defrag_thold;
    void * cb_eval;
    void * cb_eval_user_data;
    int32_t type_k;
    int32_t type_v;
    bool logits_all;
    bool embeddings;
    bool offload_kqv;
    bool flash_attn;
    bool no_perf;
    void * abort_callback;
    void * abort_callback_data;
};

struct llama_batch {
    int32_t n_tokens;
    llama_token * token;
    float * embd;
    llama_pos * pos;
    int32_t * n_seq_id;
    llama_seq_id ** seq_id;
    int8_t * logits;
};

struct llama_sampler_chain_params {
    bool no_perf;
};

extern void llama_backend_init(void);
extern void llama_backend_free(void);
extern struct llama_model_params llama_model_default_params(void);
extern struct llama_context_params llama_context_default_params(void);
extern llama_model * llama_load_model_from_file(const char * path_model, struct llama_model_params params);
extern void llama_free_model(llama_model * model);
extern llama_context * llama_new_context_with_model(llama_model * model, struct llama_context_params params);
extern void llama_free(llama_context * ctx);
extern int32_t llama_n_vocab(const llama_model * model);
extern int32_t llama_n_ctx(const llama_context * ctx);
extern int32_t llama_tokenize(const llama_model * model, const char * text, int32_t text_len, llama_token * tokens, int32_t n_tokens_max, bool add_special, bool parse_special);
extern int32_t llama_token_to_piece(const llama_model * model, llama_token token, char * buf, int32_t length, int32_t lstrip, bool special);
extern bool llama_token_is_eog(const llama_model * model, llama_token token);
extern struct llama_batch llama_batch_init(int32_t n_tokens, int32_t embd, int32_t n_seq_max);
extern void llama_batch_free(struct llama_batch batch);
extern int32_t llama_decode(llama_context * ctx, struct llama_batch batch);
extern void llama_kv_cache_clear(llama_context * ctx);

extern struct llama_sampler_chain_params llama_sampler_chain_default_params(void);
extern llama_sampler * llama_sampler_chain_init(struct llama_sampler_chain_params params);
extern void llama_sampler_chain_add(llama_sampler * chain, llama_sampler * smpl);
extern llama_token llama_sampler_sample(llama_sampler * chain, llama_context * ctx, int32_t idx);
extern void llama_sampler_free(llama_sampler * smpl);
extern llama_sampler * llama_sampler_init_greedy(void);
extern llama_sampler * llama_sampler_init_temp(float temp);
extern llama_sampler * llama_sampler_init_dist(uint32_t seed);
*/
import "C"

import (
	"encoding/json"
	"unsafe"

	"llamabridge/internal/bridgelog"
	"llamabridge/pkg/types"
)

// llamaDefaultSeed mirrors LLAMA_DEFAULT_SEED from llama.h.
const llamaDefaultSeed = 0xFFFFFFFF

// promptBatchCap is the minimum capacity of the prompt batch. Longer prompts
// get a batch sized to fit.
const promptBatchCap = 512

// pieceBufSize bounds a single token's printable piece.
const pieceBufSize = 128

// llamaEngine runs inference in-process through llama.cpp's C API. Handles
// are owned exclusively by this engine; the session's mutex is the only
// synchronization around them.
type llamaEngine struct {
	model *C.llama_model
	lctx  *C.llama_context
}

func newEngine() Engine { return &llamaEngine{} }

func (e *llamaEngine) Name() string { return "llama" }

func (e *llamaEngine) Init() error {
	C.llama_backend_init()
	return nil
}

func (e *llamaEngine) Free() {
	C.llama_backend_free()
}

func (e *llamaEngine) Load(path string, nCtx, nThreads int) error {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	mp := C.llama_model_default_params()
	mp.n_gpu_layers = 0 // CPU only: mobile contract

	model := C.llama_load_model_from_file(cPath, mp)
	if model == nil {
		return ErrLoadFailed("model", path)
	}

	cp := C.llama_context_default_params()
	cp.n_ctx = C.uint32_t(nCtx)
	cp.n_threads = C.int32_t(nThreads)
	cp.n_threads_batch = C.int32_t(nThreads)

	lctx := C.llama_new_context_with_model(model, cp)
	if lctx == nil {
		C.llama_free_model(model)
		return ErrLoadFailed("context", path)
	}

	e.model = model
	e.lctx = lctx
	return nil
}

func (e *llamaEngine) Unload() {
	if e.lctx != nil {
		C.llama_free(e.lctx)
		e.lctx = nil
	}
	if e.model != nil {
		C.llama_free_model(e.model)
		e.model = nil
	}
}

func (e *llamaEngine) Generate(prompt string, maxTokens int, temperature float32, stop func() bool) (Result, error) {
	if e.model == nil || e.lctx == nil {
		return Result{}, ErrNotInitialized()
	}

	cPrompt := C.CString(prompt)
	defer C.free(unsafe.Pointer(cPrompt))

	// Tokenize with the leading BOS token, no trailing special suffix.
	maxTok := len(prompt) + 1
	tokens := make([]C.llama_token, maxTok)
	n := C.llama_tokenize(e.model, cPrompt, C.int32_t(len(prompt)),
		&tokens[0], C.int32_t(maxTok), C.bool(true), C.bool(false))
	if n < 0 {
		return Result{}, ErrTokenizeFailed()
	}
	tokens = tokens[:n]
	if len(tokens) == 0 {
		return Result{}, nil
	}

	// The session is stateless across generate calls.
	C.llama_kv_cache_clear(e.lctx)

	batchCap := C.int32_t(promptBatchCap)
	if len(tokens) > promptBatchCap {
		batchCap = C.int32_t(len(tokens))
	}
	batch := C.llama_batch_init(batchCap, 0, 1)
	defer C.llama_batch_free(batch)

	// Prefill: every prompt token at its position under sequence 0, logits
	// only for the last one (the sampling target).
	for i, tok := range tokens {
		batchSet(&batch, i, tok, C.llama_pos(i), 0)
	}
	batchSetLogits(&batch, len(tokens)-1, 1)
	batch.n_tokens = C.int32_t(len(tokens))

	if ret := C.llama_decode(e.lctx, batch); ret != 0 {
		return Result{}, ErrDecodeFailed(int(ret))
	}

	chain := C.llama_sampler_chain_init(C.llama_sampler_chain_default_params())
	defer C.llama_sampler_free(chain)
	if temperature > 0 {
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_temp(C.float(temperature)))
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_dist(C.uint32_t(llamaDefaultSeed)))
	} else {
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_greedy())
	}

	var out []byte
	piece := make([]byte, pieceBufSize)
	nCur := len(tokens)
	nGen := 0

	for nGen < maxTokens && !stop() {
		tok := C.llama_sampler_sample(chain, e.lctx, -1)
		if bool(C.llama_token_is_eog(e.model, tok)) {
			break
		}

		if pn := C.llama_token_to_piece(e.model, tok,
			(*C.char)(unsafe.Pointer(&piece[0])), C.int32_t(pieceBufSize), 0, C.bool(false)); pn > 0 {
			out = append(out, piece[:pn]...)
		}

		batchSet(&batch, 0, tok, C.llama_pos(nCur), 1)
		batch.n_tokens = 1
		if ret := C.llama_decode(e.lctx, batch); ret != 0 {
			// Return what was produced so far; not an error at the boundary.
			bridgelog.L().Error().Int("status", int(ret)).Int("token", nGen).Msg("token decode failed")
			break
		}

		nCur++
		nGen++
	}

	return Result{Text: string(out), Tokens: nGen}, nil
}

func (e *llamaEngine) InfoJSON() string {
	if e.model == nil {
		return "{}"
	}
	info := types.ModelInfo{
		VocabSize: int(C.llama_n_vocab(e.model)),
		Loaded:    true,
	}
	if e.lctx != nil {
		info.ContextSize = int(C.llama_n_ctx(e.lctx))
	}
	b, _ := json.Marshal(info)
	return string(b)
}

// Batch field accessors. llama_batch carries parallel C arrays; cgo cannot
// index them directly, so these use pointer arithmetic.

func batchSet(b *C.struct_llama_batch, i int, tok C.llama_token, pos C.llama_pos, logits C.int8_t) {
	tp := (*C.llama_token)(unsafe.Pointer(uintptr(unsafe.Pointer(b.token)) + uintptr(i)*unsafe.Sizeof(C.llama_token(0))))
	*tp = tok
	pp := (*C.llama_pos)(unsafe.Pointer(uintptr(unsafe.Pointer(b.pos)) + uintptr(i)*unsafe.Sizeof(C.llama_pos(0))))
	*pp = pos
	np := (*C.int32_t)(unsafe.Pointer(uintptr(unsafe.Pointer(b.n_seq_id)) + uintptr(i)*unsafe.Sizeof(C.int32_t(0))))
	*np = 1
	sp := (**C.llama_seq_id)(unsafe.Pointer(uintptr(unsafe.Pointer(b.seq_id)) + uintptr(i)*unsafe.Sizeof((*C.llama_seq_id)(nil))))
	**sp = 0
	batchSetLogits(b, i, logits)
}

func batchSetLogits(b *C.struct_llama_batch, i int, logits C.int8_t) {
	lp := (*C.int8_t)(unsafe.Pointer(uintptr(unsafe.Pointer(b.logits)) + uintptr(i)*unsafe.Sizeof(C.int8_t(0))))
	*lp = logits
}
