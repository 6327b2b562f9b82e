package viewer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/config"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/internal/loader"
	"github.com/Faultbox/castleview/internal/logger"
	"github.com/Faultbox/castleview/pkg/math"
)

// AssetLoader starts an asynchronous load. Handlers run on the render thread.
type AssetLoader interface {
	Load(ctx context.Context, path string, h loader.Handlers)
}

// LoadAssets starts loading every character and the environment. It
// returns immediately; results arrive through the loader's handlers.
func LoadAssets(ctx context.Context, st *State, l AssetLoader, assets config.AssetsConfig) {
	for _, ch := range assets.Characters {
		loadCharacter(ctx, st, l, ch)
	}
	if assets.Environment.Path != "" {
		loadEnvironment(ctx, st, l, assets.Environment)
	}
}

func logProgress(path string) func(loader.Progress) {
	return func(p loader.Progress) {
		logger.Progress(path, p.Loaded, p.Total)
	}
}

// loadCharacter loads the base model, then from its success handler the
// clip file. The clip is never requested before the base is registered.
func loadCharacter(ctx context.Context, st *State, l AssetLoader, ch config.CharacterConfig) {
	fail := func(err error) {
		logger.Error("character load failed", zap.String("character", ch.ID), zap.Error(err))
		if ferr := st.Registry.Fail(ch.ID, err); ferr != nil {
			logger.Warn("ignoring failure", zap.String("character", ch.ID), zap.Error(ferr))
		}
	}

	onClip := func(res *loader.Result) {
		clip, err := loader.FirstClip(res)
		if err != nil {
			fail(err)
			return
		}
		if err := st.Registry.AttachClip(ch.ID, clip); err != nil {
			logger.Error("attach clip", zap.String("character", ch.ID), zap.Error(err))
			return
		}
		logger.Info("character ready",
			zap.String("character", ch.ID),
			zap.String("clip", clip.Name),
			zap.Float32("duration", clip.Duration))
	}

	onBase := func(res *loader.Result) {
		if err := st.Registry.RegisterBase(ch.ID, res.Root, ch.Scale, math.V3(ch.Position)); err != nil {
			if errors.Is(err, ErrAlreadyRegistered) {
				logger.Warn("register base", zap.String("character", ch.ID), zap.Error(err))
				return
			}
			fail(err)
			return
		}
		l.Load(ctx, ch.Clip, loader.Handlers{
			OnLoad:     onClip,
			OnProgress: logProgress(ch.Clip),
			OnError:    fail,
		})
	}

	l.Load(ctx, ch.Model, loader.Handlers{
		OnLoad:     onBase,
		OnProgress: logProgress(ch.Model),
		OnError:    fail,
	})
}

func loadEnvironment(ctx context.Context, st *State, l AssetLoader, env config.EnvironmentConfig) {
	l.Load(ctx, env.Path, loader.Handlers{
		OnLoad: func(res *loader.Result) {
			if err := st.Graph.Add(res.Root); err != nil {
				logger.Error("insert environment", zap.String("path", env.Path), zap.Error(err))
				return
			}
			stageEnvironment(res.Root, env)
			logger.Info("environment ready", zap.String("path", env.Path))
		},
		OnProgress: logProgress(env.Path),
		OnError: func(err error) {
			logger.Error("environment load failed", zap.String("path", env.Path), zap.Error(err))
		},
	})
}

// stageEnvironment enables shadows on every mesh and light in the static
// scene and applies its yaw.
func stageEnvironment(root *scene.Node, env config.EnvironmentConfig) {
	root.Traverse(func(n *scene.Node) {
		if n.Mesh != nil {
			n.CastShadow = true
			n.ReceiveShadow = true
		}
		if n.Light != nil {
			n.Light.CastShadow = true
			n.Light.Shadow.Bias = env.ShadowBias
			n.Light.Shadow.MapWidth = env.ShadowMapSize
			n.Light.Shadow.MapHeight = env.ShadowMapSize
		}
	})
	root.RotateY(math.Radians(env.RotationY))
}
