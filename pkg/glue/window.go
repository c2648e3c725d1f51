package glue

// Window is an externally reference-counted surface handle owned jointly by
// the host and the bridge. The bridge calls Acquire when it takes a
// reference at a boundary crossing and Release on every path that drops
// one; implementations decide what happens when the count reaches zero.
type Window interface {
	Acquire()
	Release()
}

// Rect is the activity's content rectangle in window coordinates.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Width returns the rectangle's width.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the rectangle's height.
func (r Rect) Height() int32 { return r.Bottom - r.Top }
