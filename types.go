package compositor

import (
	"fmt"
	"strings"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at draw submission time.
type Color struct {
	R, G, B, A float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// TextAlign controls horizontal text alignment within a glyph texture.
type TextAlign uint8

const (
	TextAlignLeft   TextAlign = iota // align text to the left edge (default)
	TextAlignCenter                  // center text horizontally
	TextAlignRight                   // align text to the right edge
)

// NodeKind selects the visual role of a DisplayNode.
type NodeKind uint8

const (
	// NodeSimple nodes use one host element both for participating in the
	// parent's layout and for hosting their own children.
	NodeSimple NodeKind = iota
	// NodeComposite nodes (scroll viewers and similar) expose a layout
	// element to the parent and a separate, nested content element that
	// hosts their children.
	NodeComposite
)

func (k NodeKind) String() string {
	switch k {
	case NodeSimple:
		return "simple"
	case NodeComposite:
		return "composite"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// ElementRole tells the host which kind of visual element to create.
type ElementRole uint8

const (
	ElementPanel         ElementRole = iota // plain panel; layout and content of simple nodes
	ElementScrollViewer                     // outer layout element of a composite node
	ElementScrollContent                    // inner content element of a composite node
)

// CompositionMode selects how the compositor is embedded in its host.
type CompositionMode uint8

const (
	// CompositionModeDefault: the compositor owns the frame loop and
	// dispatches queued transactions on every Tick.
	CompositionModeDefault CompositionMode = iota
	// CompositionModeLibrary: the embedding application calls Dispatch
	// itself; Tick only advances the host.
	CompositionModeLibrary
)

func (m CompositionMode) String() string {
	switch m {
	case CompositionModeDefault:
		return "default"
	case CompositionModeLibrary:
		return "library"
	default:
		return fmt.Sprintf("CompositionMode(%d)", uint8(m))
	}
}

// ParseCompositionMode parses "default" or "library" (case-insensitive).
// The empty string maps to CompositionModeDefault.
func ParseCompositionMode(s string) (CompositionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return CompositionModeDefault, nil
	case "library":
		return CompositionModeLibrary, nil
	default:
		return 0, fmt.Errorf("compositor: unknown composition mode %q", s)
	}
}

// Property names understood by DisplayNode and the reference host.
const (
	PropOpacity         = "opacity"
	PropPositionX       = "position.x"
	PropPositionY       = "position.y"
	PropWidth           = "bounds.size.width"
	PropHeight          = "bounds.size.height"
	PropAnchorX         = "anchorPoint.x"
	PropAnchorY         = "anchorPoint.y"
	PropRotation        = "transform.rotation"
	PropScaleX          = "transform.scale.x"
	PropScaleY          = "transform.scale.y"
	PropContentOffsetX  = "contentOffset.x"
	PropContentOffsetY  = "contentOffset.y"
	PropContentWidth    = "contentSize.width"
	PropContentHeight   = "contentSize.height"
	PropHidden          = "hidden"
	PropMasksToBounds   = "masksToBounds"
	PropBackgroundColor = "backgroundColor"
	PropContentsCenter  = "contentsCenter"
	PropShouldRasterize = "shouldRasterize"
	PropZIndex          = "zIndex"
	PropTopMost         = "topMost"
	PropContents        = "contents"
)

// isContentProperty reports whether a property belongs to a composite node's
// content element rather than its layout element.
func isContentProperty(name string) bool {
	return strings.HasPrefix(name, "contentOffset.") || strings.HasPrefix(name, "contentSize.")
}
