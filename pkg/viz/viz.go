// Package viz draws the change graph of a board document. Each node is one
// change, labelled with its hash prefix, author, message and the number of
// shapes on the board after it.
package viz

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/astromechza/inkboard/pkg/board"
)

type node struct {
	change board.ChangeInfo
	label  string
}

func nodes(doc *board.Document) ([]node, error) {
	history, err := doc.History()
	if err != nil {
		return nil, err
	}
	out := make([]node, 0, len(history))
	for _, change := range history {
		docAt, err := doc.At(change.Hash)
		if err != nil {
			return nil, err
		}
		actor := change.Actor
		if len(actor) > 8 {
			actor = actor[:8]
		}
		out = append(out, node{
			change: change,
			label:  fmt.Sprintf("%s %s@%d %s (%d shapes)", change.Hash[:8], actor, change.Seq, change.Message, docAt.ShapeCount()),
		})
	}
	return out, nil
}

// WriteDot writes the change graph in graphviz dot syntax.
func WriteDot(doc *board.Document, w io.Writer) error {
	ns, err := nodes(doc)
	if err != nil {
		return err
	}
	var buff bytes.Buffer
	buff.WriteString("digraph \"history\" {\n")
	for _, n := range ns {
		fmt.Fprintf(&buff, "    %q [label=%q]\n", n.change.Hash, n.label)
		for _, dep := range n.change.Dependencies {
			fmt.Fprintf(&buff, "    %q -> %q\n", dep, n.change.Hash)
		}
	}
	buff.WriteString("}\n")
	_, err = w.Write(buff.Bytes())
	return err
}

// RenderSvg renders the change graph as svg.
func RenderSvg(doc *board.Document, w io.Writer) error {
	ns, err := nodes(doc)
	if err != nil {
		return err
	}

	g := graphviz.New()
	defer g.Close()
	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("failed to setup graph: %w", err)
	}
	defer graph.Close()

	nodeMap := make(map[string]*cgraph.Node)
	var edgeCounter uint64
	for _, n := range ns {
		gn, err := graph.CreateNode(n.change.Hash)
		if err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		gn.SetLabel(n.label)
		nodeMap[n.change.Hash] = gn

		for _, dep := range n.change.Dependencies {
			from, ok := nodeMap[dep]
			if !ok {
				continue
			}
			if _, err := graph.CreateEdge(strconv.FormatUint(atomic.AddUint64(&edgeCounter, 1), 10), from, gn); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
	}

	if err := g.Render(graph, graphviz.SVG, w); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	return nil
}

func RenderToFile(doc *board.Document, outputPath string) error {
	var buff bytes.Buffer
	if err := RenderSvg(doc, &buff); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buff.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}

// RenderToTemp renders into a new file under the temp dir and returns its path.
func RenderToTemp(doc *board.Document) (string, error) {
	tf := filepath.Join(os.TempDir(), fmt.Sprintf("%d%d.svg", time.Now().UnixNano(), rand.Int()))
	if err := RenderToFile(doc, tf); err != nil {
		return "", err
	}
	return tf, nil
}
