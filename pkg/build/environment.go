package build

import (
	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/runtime"
)

// Mount is what Environment.Enter hands back: the writable upper
// directory a diff is taken against, and the merged view a build
// script actually runs inside.
type Mount struct {
	UpperDir  string
	MergedDir string
}

// Environment is the narrow slice of a runtime entry a build needs:
// mount a platform stack editable and hand back its mount points, then
// tear it down ( step 5: "Enter a runtime with the
// build-resolver solution as the stack"). Kept as an interface so
// builds can be exercised without root privileges or a real overlay
// mount.
type Environment interface {
	Enter(stack []digest.Digest) (Mount, error)
	Exit() error
}

// OverlayEnvironment is the real Environment, backed by an
// OverlayMounter over the object graph and a renderer.
type OverlayEnvironment struct {
	mounter  *runtime.OverlayMounter
	resolver runtime.Resolver
	objects  runtime.ManifestReader
}

// NewOverlayEnvironment returns an Environment whose mount points live
// under the mounter's runtime dir.
func NewOverlayEnvironment(mounter *runtime.OverlayMounter, resolver runtime.Resolver, objects runtime.ManifestReader) *OverlayEnvironment {
	return &OverlayEnvironment{mounter: mounter, resolver: resolver, objects: objects}
}

func (e *OverlayEnvironment) Enter(stack []digest.Digest) (Mount, error) {
	if err := runtime.EnterNamespace(); err != nil {
		return Mount{}, err
	}
	if err := e.mounter.Mount(stack, e.resolver, e.objects, true); err != nil {
		return Mount{}, err
	}
	return Mount{UpperDir: e.mounter.UpperDir(), MergedDir: e.mounter.MergedDir()}, nil
}

func (e *OverlayEnvironment) Exit() error {
	return e.mounter.Unmount()
}
