package scene

import "fmt"

// LightKind identifies the light model.
type LightKind int

const (
	PointLight LightKind = iota
	DirectionalLight
	SpotLight
)

// String returns the light kind name.
func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "point"
	case DirectionalLight:
		return "directional"
	case SpotLight:
		return "spot"
	default:
		return fmt.Sprintf("LightKind(%d)", int(k))
	}
}

// DefaultShadowMapSize is the shadow map edge length used when a light does not set one.
const DefaultShadowMapSize = 1024

// LightShadow holds per-light shadow map settings.
type LightShadow struct {
	Bias      float32
	MapWidth  int32
	MapHeight int32
}

// Light is attached to a Node; its position comes from the node's world
// matrix. Directional and spot lights point down the node's local -Z axis.
type Light struct {
	Kind       LightKind
	Color      [3]float32
	Intensity  float32
	Range      float32 // 0 means unlimited
	InnerCone  float32 // spot only, radians
	OuterCone  float32 // spot only, radians
	CastShadow bool
	Shadow     LightShadow
}

// NewLight creates a white light of the given kind.
func NewLight(kind LightKind) *Light {
	return &Light{
		Kind:      kind,
		Color:     [3]float32{1, 1, 1},
		Intensity: 1,
		Shadow: LightShadow{
			MapWidth:  DefaultShadowMapSize,
			MapHeight: DefaultShadowMapSize,
		},
	}
}
