// Package otb implements the escape-framed node tree underlying the OTB
// family of files, as established by OpenTibia Server's fileloader.cpp.
//
// No meaning is assigned to nodes; that is the task of readers for an
// individual format such as otb/items.
package otb

import (
	"strings"

	"github.com/golang/glog"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
)

// Various special-meaning characters that might be encountered while parsing a
// node.
const (
	ESCAPE_CHAR = binbuf.EscapeChar // Following character should be read verbatim, even if it otherwise has a special meaning.
	NODE_START  = binbuf.NodeStart  // From this character onwards, this is a new OTB node. If preceded by NODE_END, this is the next sibling node. Otherwise, it's a child node.
	NODE_END    = binbuf.NodeEnd    // This character marks the end of the latest OTB node. If immediately followed by a NODE_START, that will be the next sibling node.
)

// OTB holds a parsed tree of nodes.
type OTB struct {
	root *Node
}

// Node represents a single node in an OTB-formatted file.
//
// Each node has a type, some data, and may have a sibling and a child attached
// to it.
//
// Further meaning depends on the file; for example, root node in items.otb
// does not use type, but uses data array to store the version of the file and
// a free form descriptor. Its child is the first item in the file; item's
// sibling is the second item; second item's sibling is the third item; et
// cetera.
type Node struct {
	nodeType uint8
	props    []byte
	child    *Node
	next     *Node
}

// NewNode constructs a detached node for emitting, holding the given type
// and unescaped property bytes.
func NewNode(nodeType uint8, props []byte) *Node {
	return &Node{nodeType: nodeType, props: props}
}

// NodeType returns the type of the node.
//
// For example, in item nodes in items.otb, this means which item group the
// item belongs to (item groups being used in editors to group items into
// sections such as ground, walls, etc).
func (n *Node) NodeType() uint8 {
	return n.nodeType
}

// Props returns the node's property bytes with all escapes resolved.
// Length fields inside the props therefore count payload bytes only.
func (n *Node) Props() []byte {
	return n.props
}

// PropsReader returns a fresh cursor over the node's property bytes.
func (n *Node) PropsReader() *binbuf.Reader {
	return binbuf.NewReader(n.props)
}

// ChildNode returns the first child of the node, or nil if there are no
// children.
func (n *Node) ChildNode() *Node {
	return n.child
}

// NextNode returns the next sibling of the node, or nil if there are no
// more siblings.
func (n *Node) NextNode() *Node {
	return n.next
}

// AddChild appends c as the last child of n and returns c.
func (n *Node) AddChild(c *Node) *Node {
	if n.child == nil {
		n.child = c
		return c
	}
	last := n.child
	for last.next != nil {
		last = last.next
	}
	last.next = c
	return c
}

// RootNode returns the tree's root, or nil for an empty tree.
func (o *OTB) RootNode() *Node {
	return o.root
}

// ChildNode returns whichever is the first child node of a given node. If nil
// is passed, root node is assumed.
//
// To obtain further children, use child's NextNode to obtain the first
// sibling, then use that child's NextNode to obtain the next sibling, etc.
func (o *OTB) ChildNode(parent *Node) *Node {
	if parent == nil {
		return o.root
	}
	return parent.ChildNode()
}

// Unmarshal parses a whole OTB byte stream: four reserved bytes (zero in
// every known file), then the root node framed by NODE_START/NODE_END.
func Unmarshal(data []byte) (*OTB, error) {
	r := binbuf.NewReader(data)

	version, err := r.U32()
	if err != nil {
		return nil, errs.At(errs.Truncated, r.Pos(), "reading otb header: %v", err)
	}
	if version > 0 {
		return nil, errs.At(errs.BadSignature, 0, "invalid otb header; got %d, want %d", version, 0)
	}

	byt, err := r.U8()
	if err != nil {
		return nil, errs.At(errs.Truncated, r.Pos(), "reading start of otb node: %v", err)
	}
	if byt != NODE_START {
		return nil, errs.At(errs.InvariantViolation, r.Pos()-1, "expected start of node: got %x, want %x", byt, NODE_START)
	}

	root := &Node{}
	if err := root.parse(r, 0); err != nil {
		return nil, err
	}
	return &OTB{root: root}, nil
}

// parse reads all the bytes associated with the current node, as well as its
// children.
//
// It expects that NODE_START byte has already been read.
func (n *Node) parse(r *binbuf.Reader, depth int) error {
	currentNode := n
	for {
		nodeType, err := r.U8()
		if err != nil {
			return errs.At(errs.Truncated, r.Pos(), "reading otb node type: %v", err)
		}
		glog.V(3).Infof("%stype 0x%02X", strings.Repeat(" ", depth), nodeType)
		currentNode.nodeType = nodeType

		for {
			shouldBreakFor := false

			byt, err := r.U8()
			if err != nil {
				return errs.At(errs.Truncated, r.Pos(), "reading otb byte: %v", err)
			}
			switch byt {
			case NODE_START:
				node := Node{}
				currentNode.AddChild(&node)
				if err := node.parse(r, depth+1); err != nil {
					return err
				}
			case NODE_END:
				if depth == 0 && r.Remaining() == 0 {
					return nil
				}
				byt, err := r.U8()
				if err != nil {
					return errs.At(errs.Truncated, r.Pos(), "reading otb byte after node end: %v", err)
				}
				switch byt {
				case NODE_START:
					node := Node{}
					currentNode.next = &node
					currentNode = &node
					shouldBreakFor = true
				case NODE_END:
					// Parent's NODE_END. Unread it so the parent loop sees it.
					if err := r.Seek(r.Pos() - 1); err != nil {
						return err
					}
					return nil
				default:
					return errs.At(errs.InvariantViolation, r.Pos()-1, "expected NODE_START or NODE_END, got %x", byt)
				}
			case ESCAPE_CHAR:
				esc, err := r.U8()
				if err != nil {
					return errs.At(errs.Truncated, r.Pos(), "reading escaped otb byte: %v", err)
				}
				currentNode.props = append(currentNode.props, esc)
			default:
				currentNode.props = append(currentNode.props, byt)
			}

			if shouldBreakFor {
				break
			}
		}
	}
}

// Marshal emits the tree back into the OTB byte framing: the reserved
// header, then every node with its props escaped.
func Marshal(o *OTB) ([]byte, error) {
	if o == nil || o.root == nil {
		return nil, errs.New(errs.InvariantViolation, "cannot marshal an empty otb tree")
	}
	w := &binbuf.Writer{}
	w.U32(0)
	emitNode(w, o.root)
	return w.Bytes(), nil
}

// NewTree wraps a root node into an emittable OTB.
func NewTree(root *Node) *OTB {
	return &OTB{root: root}
}

func emitNode(w *binbuf.Writer, n *Node) {
	w.U8(NODE_START)
	w.U8(n.nodeType)
	w.NodeBytes(n.props)
	for c := n.child; c != nil; c = c.next {
		emitNode(w, c)
	}
	w.U8(NODE_END)
}
