// Package onnx wraps the ONNX Runtime C API for local model inference.
//
// The wake-word classifier is the only consumer: it loads a small keyword
// model once and runs one float tensor through it per audio window. The
// surface is sized for that use.
//
//	env, _ := onnx.NewEnv("omnivoice")
//	defer env.Close()
//
//	sess, _ := env.NewSession(modelBlob)
//	defer sess.Close()
//
//	in, _ := onnx.NewTensor([]int64{1, 98, 40}, features)
//	defer in.Close()
//	outs, _ := sess.Run([]string{"input"}, []*onnx.Tensor{in}, []string{"output"})
//	scores, _ := outs[0].FloatData()
//
// ONNX Runtime is linked dynamically via CGo. Env is safe for concurrent
// use and Session.Run serializes internally.
package onnx

/*
#include <onnxruntime_c_api.h>
#include <stdlib.h>
#include <string.h>

static const OrtApi* ox_api() {
    return OrtGetApiBase()->GetApi(ORT_API_VERSION);
}

static const char* ox_status_message(OrtStatus* st) {
    return ox_api()->GetErrorMessage(st);
}

static void ox_status_free(OrtStatus* st) {
    ox_api()->ReleaseStatus(st);
}

static OrtStatus* ox_env_new(const char* name, OrtEnv** out) {
    return ox_api()->CreateEnv(ORT_LOGGING_LEVEL_WARNING, name, out);
}

static void ox_env_free(OrtEnv* env) {
    ox_api()->ReleaseEnv(env);
}

static OrtStatus* ox_session_new(OrtEnv* env, const void* blob, size_t blob_len, OrtSession** out) {
    const OrtApi* api = ox_api();
    OrtSessionOptions* opts;
    OrtStatus* st = api->CreateSessionOptions(&opts);
    if (st) return st;
    st = api->CreateSessionFromArray(env, blob, blob_len, opts, out);
    api->ReleaseSessionOptions(opts);
    return st;
}

static void ox_session_free(OrtSession* s) {
    ox_api()->ReleaseSession(s);
}

static OrtStatus* ox_tensor_new(float* data, size_t n, int64_t* shape, size_t ndim, OrtValue** out) {
    const OrtApi* api = ox_api();
    OrtMemoryInfo* info;
    OrtStatus* st = api->CreateCpuMemoryInfo(OrtArenaAllocator, OrtMemTypeDefault, &info);
    if (st) return st;
    st = api->CreateTensorWithDataAsOrtValue(info, data, n * sizeof(float),
        shape, ndim, ONNX_TENSOR_ELEMENT_DATA_TYPE_FLOAT, out);
    api->ReleaseMemoryInfo(info);
    return st;
}

static void ox_value_free(OrtValue* v) {
    ox_api()->ReleaseValue(v);
}

static OrtStatus* ox_run(OrtSession* session,
    const char** in_names, const OrtValue* const* ins, size_t n_in,
    const char** out_names, size_t n_out, OrtValue** outs) {
    return ox_api()->Run(session, NULL, in_names, ins, n_in, out_names, n_out, outs);
}

static OrtStatus* ox_tensor_floats(OrtValue* v, float** out) {
    return ox_api()->GetTensorMutableData(v, (void**)out);
}

// ox_tensor_dims writes up to cap dimensions into shape and the true
// dimension count into ndim.
static OrtStatus* ox_tensor_dims(OrtValue* v, int64_t* shape, size_t cap, size_t* ndim) {
    const OrtApi* api = ox_api();
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* st = api->GetTensorTypeAndShape(v, &info);
    if (st) return st;
    st = api->GetDimensionsCount(info, ndim);
    if (!st && *ndim > 0 && *ndim <= cap) {
        st = api->GetDimensions(info, shape, *ndim);
    }
    api->ReleaseTensorTypeAndShapeInfo(info);
    return st;
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

// maxDims bounds tensor rank; keyword models are rank 2 or 3.
const maxDims = 8

func ortErr(st *C.OrtStatus) error {
	if st == nil {
		return nil
	}
	msg := C.GoString(C.ox_status_message(st))
	C.ox_status_free(st)
	return fmt.Errorf("onnx: %s", msg)
}

// Env is the ONNX Runtime environment. Create one per process and close
// it after every session built from it.
type Env struct {
	env *C.OrtEnv
}

func NewEnv(name string) (*Env, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var env *C.OrtEnv
	if err := ortErr(C.ox_env_new(cname, &env)); err != nil {
		return nil, err
	}
	e := &Env{env: env}
	runtime.SetFinalizer(e, (*Env).Close)
	return e, nil
}

// NewSession loads a model from an in-memory blob. The blob is retained
// so the C side can keep reading it.
func (e *Env) NewSession(blob []byte) (*Session, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("onnx: empty model blob")
	}

	var sess *C.OrtSession
	err := ortErr(C.ox_session_new(e.env,
		unsafe.Pointer(&blob[0]), C.size_t(len(blob)), &sess))
	if err != nil {
		return nil, err
	}

	s := &Session{sess: sess, blob: blob}
	runtime.SetFinalizer(s, (*Session).Close)
	return s, nil
}

// Close releases the environment. Safe to call more than once.
func (e *Env) Close() error {
	if e.env != nil {
		C.ox_env_free(e.env)
		e.env = nil
		runtime.SetFinalizer(e, nil)
	}
	return nil
}

// Session holds a loaded model.
type Session struct {
	sess *C.OrtSession
	blob []byte // keeps the model memory alive for the C session
}

// Run executes one inference. The caller closes each returned tensor.
func (s *Session) Run(inputNames []string, inputs []*Tensor, outputNames []string) ([]*Tensor, error) {
	if len(inputNames) != len(inputs) {
		return nil, fmt.Errorf("onnx: %d input names for %d tensors", len(inputNames), len(inputs))
	}
	if len(inputs) == 0 || len(outputNames) == 0 {
		return nil, fmt.Errorf("onnx: run needs at least one input and output")
	}

	cin := make([]*C.char, len(inputNames))
	for i, name := range inputNames {
		cin[i] = C.CString(name)
		defer C.free(unsafe.Pointer(cin[i]))
	}
	cout := make([]*C.char, len(outputNames))
	for i, name := range outputNames {
		cout[i] = C.CString(name)
		defer C.free(unsafe.Pointer(cout[i]))
	}

	cvals := make([]*C.OrtValue, len(inputs))
	for i, t := range inputs {
		cvals[i] = t.value
	}
	results := make([]*C.OrtValue, len(outputNames))

	err := ortErr(C.ox_run(s.sess,
		&cin[0], &cvals[0], C.size_t(len(inputs)),
		&cout[0], C.size_t(len(outputNames)), &results[0]))
	if err != nil {
		return nil, err
	}

	outs := make([]*Tensor, len(results))
	for i, v := range results {
		outs[i] = &Tensor{value: v}
		runtime.SetFinalizer(outs[i], (*Tensor).Close)
	}
	return outs, nil
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() error {
	if s.sess != nil {
		C.ox_session_free(s.sess)
		s.sess = nil
		s.blob = nil
		runtime.SetFinalizer(s, nil)
	}
	return nil
}

// Tensor is a float32 OrtValue.
type Tensor struct {
	value *C.OrtValue
	data  []float32 // keeps caller data alive for input tensors
}

// NewTensor wraps data as a tensor of the given shape. The slice must
// stay untouched until the tensor is closed.
func NewTensor(shape []int64, data []float32) (*Tensor, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("onnx: empty tensor data")
	}
	want := int64(1)
	for _, d := range shape {
		want *= d
	}
	if int64(len(data)) < want {
		return nil, fmt.Errorf("onnx: shape %v needs %d values, have %d", shape, want, len(data))
	}

	var value *C.OrtValue
	err := ortErr(C.ox_tensor_new(
		(*C.float)(unsafe.Pointer(&data[0])), C.size_t(len(data)),
		(*C.int64_t)(unsafe.Pointer(&shape[0])), C.size_t(len(shape)),
		&value))
	if err != nil {
		return nil, err
	}

	t := &Tensor{value: value, data: data}
	runtime.SetFinalizer(t, (*Tensor).Close)
	return t, nil
}

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() ([]int64, error) {
	var dims [maxDims]C.int64_t
	var ndim C.size_t
	if err := ortErr(C.ox_tensor_dims(t.value, &dims[0], maxDims, &ndim)); err != nil {
		return nil, err
	}
	if ndim > maxDims {
		return nil, fmt.Errorf("onnx: tensor rank %d exceeds %d", int(ndim), maxDims)
	}
	shape := make([]int64, int(ndim))
	for i := range shape {
		shape[i] = int64(dims[i])
	}
	return shape, nil
}

// FloatData copies the tensor contents into a new slice.
func (t *Tensor) FloatData() ([]float32, error) {
	shape, err := t.Shape()
	if err != nil {
		return nil, err
	}
	total := 1
	for _, d := range shape {
		total *= int(d)
	}
	if total <= 0 {
		return nil, nil
	}

	var ptr *C.float
	if err := ortErr(C.ox_tensor_floats(t.value, &ptr)); err != nil {
		return nil, err
	}
	out := make([]float32, total)
	C.memcpy(unsafe.Pointer(&out[0]), unsafe.Pointer(ptr), C.size_t(total*4))
	return out, nil
}

// Close releases the tensor. Safe to call more than once.
func (t *Tensor) Close() error {
	if t.value != nil {
		C.ox_value_free(t.value)
		t.value = nil
		t.data = nil
		runtime.SetFinalizer(t, nil)
	}
	return nil
}
