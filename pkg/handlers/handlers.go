// Package handlers implements the animation commands the host executes:
// applying animations and poses, interactive pose blending, bone selection
// and armature queries.
//
// Every handler runs on the host tick goroutine through the dispatch
// scheduler and is the only code that touches the scene and the blend
// session.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/poseblend"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/scene"
)

// MsgNoArmature is the error text returned when a command needs an active
// armature and the scene has none.
const MsgNoArmature = "No armature selected. Select an armature in the host scene."

// Handlers holds the state the animation commands operate on.
type Handlers struct {
	scene   *scene.Scene
	loader  resource.Loader
	catalog catalog.Store

	blend     *poseblend.Session
	blendArm  *scene.Armature
	blendName string
}

// New creates the handler set. store may be nil, in which case asset ids
// are passed to loader unchanged.
func New(sc *scene.Scene, loader resource.Loader, store catalog.Store) *Handlers {
	h := &Handlers{scene: sc, loader: loader, catalog: store}
	h.blend = poseblend.New(h.loadBlendTarget)
	return h
}

// Blend returns the pose blend session.
func (h *Handlers) Blend() *poseblend.Session {
	return h.blend
}

// Register adds every command to reg. Commands that load resources or key
// many bones are registered heavy.
func (h *Handlers) Register(reg *dispatch.Registry) error {
	table := []struct {
		typ  string
		fn   dispatch.HandlerFunc
		opts []dispatch.Option
	}{
		{protocol.TypeApplyAnimation, h.ApplyAnimation, []dispatch.Option{dispatch.WithHeavy(), dispatch.WithDescription("apply a library animation to the active armature")}},
		{protocol.TypeApplyPose, h.ApplyPose, []dispatch.Option{dispatch.WithHeavy(), dispatch.WithDescription("apply a library pose to the active armature")}},
		{protocol.TypeBlendPoseStart, h.BlendPoseStart, []dispatch.Option{dispatch.WithDescription("start blending toward a pose")}},
		{protocol.TypeBlendPose, h.BlendPose, []dispatch.Option{dispatch.WithDescription("set the blend factor")}},
		{protocol.TypeBlendPoseEnd, h.BlendPoseEnd, []dispatch.Option{dispatch.WithHeavy(), dispatch.WithDescription("commit or cancel the blend")}},
		{protocol.TypeSelectBones, h.SelectBones, []dispatch.Option{dispatch.WithDescription("select bones by name")}},
		{protocol.TypeGetArmatureInfo, h.GetArmatureInfo, []dispatch.Option{dispatch.WithDescription("describe the active armature")}},
	}
	for _, e := range table {
		if err := reg.Register(e.typ, e.fn, e.opts...); err != nil {
			return err
		}
	}
	return nil
}

// activeArmature returns the active armature or the no-armature response.
func (h *Handlers) activeArmature() (*scene.Armature, *protocol.Response) {
	arm, err := h.scene.ActiveArmature()
	if err != nil {
		r := protocol.Errorf("%s", MsgNoArmature)
		return nil, &r
	}
	return arm, nil
}

// resolve turns an asset id into a resource reference. An explicit path
// wins, then the catalog; without a catalog the id is the reference.
func (h *Handlers) resolve(ctx context.Context, kind, id, path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if h.catalog == nil {
		return id, nil
	}
	e, err := h.catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", fmt.Errorf("%s not found in library: %s", kindTitle(kind), id)
	}
	if err != nil {
		return "", fmt.Errorf("catalog lookup %s: %w", id, err)
	}
	return e.Path, nil
}

// load fetches ref and maps a missing file to a readable error.
func (h *Handlers) load(ctx context.Context, kind, ref string) (*resource.Clip, error) {
	clip, err := h.loader.Load(ctx, ref)
	if errors.Is(err, resource.ErrNotFound) {
		return nil, fmt.Errorf("%s file not found: %s", kindTitle(kind), ref)
	}
	return clip, err
}

func kindTitle(kind string) string {
	if kind == resource.KindPose {
		return "Pose"
	}
	return "Animation"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
