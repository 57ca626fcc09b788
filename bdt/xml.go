package bdt

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

type xmlMethod struct {
	XMLName   xml.Name     `xml:"MethodSetup"`
	Method    string       `xml:"Method,attr"`
	Info      []xmlInfo    `xml:"GeneralInfo>Info"`
	Options   []xmlOption  `xml:"Options>Option"`
	Variables xmlVariables `xml:"Variables"`
	Classes   xmlClasses   `xml:"Classes"`
	Weights   xmlWeights   `xml:"Weights"`
}

type xmlInfo struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlOption struct {
	Name     string `xml:"name,attr"`
	Modified string `xml:"modified,attr"`
	Value    string `xml:",chardata"`
}

type xmlVariables struct {
	N    int           `xml:"NVar,attr"`
	Vars []xmlVariable `xml:"Variable"`
}

type xmlVariable struct {
	Index      int     `xml:"VarIndex,attr"`
	Expression string  `xml:"Expression,attr"`
	Label      string  `xml:"Label,attr"`
	Title      string  `xml:"Title,attr"`
	Type       string  `xml:"Type,attr"`
	Min        float64 `xml:"Min,attr"`
	Max        float64 `xml:"Max,attr"`
}

type xmlClasses struct {
	N       int        `xml:"NClass,attr"`
	Classes []xmlClass `xml:"Class"`
}

type xmlClass struct {
	Name  string `xml:"Name,attr"`
	Index int    `xml:"Index,attr"`
}

type xmlWeights struct {
	NTrees       int       `xml:"NTrees,attr"`
	AnalysisType string    `xml:"AnalysisType,attr"`
	Trees        []xmlTree `xml:"BinaryTree"`
}

type xmlTree struct {
	Type  string  `xml:"type,attr"`
	Index int     `xml:"itree,attr"`
	Class int     `xml:"class,attr"`
	Root  xmlNode `xml:"Node"`
}

type xmlNode struct {
	Pos      string    `xml:"pos,attr"`
	Depth    int       `xml:"depth,attr"`
	IVar     int       `xml:"IVar,attr"`
	Cut      float64   `xml:"Cut,attr"`
	CType    int       `xml:"cType,attr"`
	Res      float64   `xml:"res,attr"`
	Gain     float64   `xml:"sepGain,attr"`
	NType    int       `xml:"nType,attr"`
	Children []xmlNode `xml:"Node"`
}

func toXMLNode(n *Node, pos string, depth int) xmlNode {
	x := xmlNode{Pos: pos, Depth: depth, IVar: n.Var, CType: 1, Res: n.Value}
	if n.Leaf() {
		x.IVar = -1
		x.NType = -1
		return x
	}
	x.Cut = n.Cut
	x.Gain = n.Gain
	x.Children = []xmlNode{
		toXMLNode(n.Left, "l", depth+1),
		toXMLNode(n.Right, "r", depth+1),
	}
	return x
}

func fromXMLNode(x xmlNode, nVars int) (*Node, error) {
	if x.IVar < 0 {
		if len(x.Children) != 0 {
			return nil, errors.Errorf("leaf at depth %d has children", x.Depth)
		}
		return &Node{Var: -1, Value: x.Res}, nil
	}
	if x.IVar >= nVars {
		return nil, errors.Errorf("node at depth %d cuts on variable %d of %d", x.Depth, x.IVar, nVars)
	}
	n := &Node{Var: x.IVar, Cut: x.Cut, Gain: x.Gain}
	for _, c := range x.Children {
		child, err := fromXMLNode(c, nVars)
		if err != nil {
			return nil, err
		}
		switch c.Pos {
		case "l":
			n.Left = child
		case "r":
			n.Right = child
		default:
			return nil, errors.Errorf("node at depth %d has position %q", c.Depth, c.Pos)
		}
	}
	if n.Left == nil || n.Right == nil {
		return nil, errors.Errorf("node at depth %d is missing a child", x.Depth)
	}
	if x.CType == 0 {
		// x > cut goes left
		n.Left, n.Right = n.Right, n.Left
	}
	return n, nil
}

// WriteXML writes f as a weight file.
func (f *Forest) WriteXML(w io.Writer) error {
	m := xmlMethod{
		Method: MethodName,
		Info: []xmlInfo{
			{Name: "Creator", Value: "calratio"},
			{Name: "Date", Value: time.Now().UTC().Format(time.RFC3339)},
		},
		Options: []xmlOption{
			{Name: "NTrees", Modified: "Yes", Value: itoa(f.Options.NTrees)},
			{Name: "MaxDepth", Modified: "Yes", Value: itoa(f.Options.MaxDepth)},
			{Name: "MinNodeSize", Modified: "Yes", Value: ftoa(f.Options.MinNodeSize) + "%"},
			{Name: "Shrinkage", Modified: "Yes", Value: ftoa(f.Options.Shrinkage)},
			{Name: "nCuts", Modified: "Yes", Value: itoa(f.Options.NCuts)},
			{Name: "BoostType", Modified: "Yes", Value: f.Options.BoostType},
		},
		Variables: xmlVariables{N: len(f.Variables)},
		Classes:   xmlClasses{N: len(f.Classes)},
	}
	for i := range f.Variables {
		if n, ok := f.Options.VarNCuts[i]; ok {
			m.Options = append(m.Options, xmlOption{Name: "nCuts[" + itoa(i) + "]", Modified: "Yes", Value: itoa(n)})
		}
	}
	m.Weights = xmlWeights{NTrees: len(f.Trees), AnalysisType: "Multiclass"}
	for i, v := range f.Variables {
		m.Variables.Vars = append(m.Variables.Vars, xmlVariable{
			Index: i, Expression: v.Name, Label: v.Name, Title: v.Name, Type: "F", Min: v.Min, Max: v.Max,
		})
	}
	for i, c := range f.Classes {
		m.Classes.Classes = append(m.Classes.Classes, xmlClass{Name: c, Index: i})
	}
	for i, t := range f.Trees {
		m.Weights.Trees = append(m.Weights.Trees, xmlTree{
			Type:  "DecisionTree",
			Index: i,
			Class: i % len(f.Classes),
			Root:  toXMLNode(t, "s", 0),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return errors.Wrap(err, "encoding weight file")
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadXML reads a weight file written by WriteXML.
func ReadXML(r io.Reader) (*Forest, error) {
	var m xmlMethod
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding weight file")
	}
	if m.Method != MethodName {
		return nil, errors.Errorf("weight file is for method %q, not %q", m.Method, MethodName)
	}

	f := &Forest{Options: DefaultOptions()}
	for _, o := range m.Options {
		if err := f.Options.set(o.Name, o.Value); err != nil {
			return nil, err
		}
	}
	f.Variables = make([]Variable, len(m.Variables.Vars))
	for _, v := range m.Variables.Vars {
		if v.Index < 0 || v.Index >= len(f.Variables) {
			return nil, errors.Errorf("variable %s has index %d", v.Expression, v.Index)
		}
		f.Variables[v.Index] = Variable{Name: v.Expression, Min: v.Min, Max: v.Max}
	}
	f.Classes = make([]string, len(m.Classes.Classes))
	for _, c := range m.Classes.Classes {
		if c.Index < 0 || c.Index >= len(f.Classes) {
			return nil, errors.Errorf("class %s has index %d", c.Name, c.Index)
		}
		f.Classes[c.Index] = c.Name
	}
	if len(f.Classes) < 2 {
		return nil, errors.Errorf("weight file declares %d classes", len(f.Classes))
	}
	if len(m.Weights.Trees)%len(f.Classes) != 0 {
		return nil, errors.Errorf("%d trees for %d classes", len(m.Weights.Trees), len(f.Classes))
	}
	for _, t := range m.Weights.Trees {
		n, err := fromXMLNode(t.Root, len(f.Variables))
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", t.Index)
		}
		f.Trees = append(f.Trees, n)
	}
	return f, nil
}

// Save writes f to path, creating the directory if needed.
func (f *Forest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating weight directory for %s", path)
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := f.WriteXML(out); err != nil {
		out.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return out.Close()
}

// Load reads the weight file at path.
func Load(path string) (*Forest, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening weight file")
	}
	defer in.Close()

	f, err := ReadXML(in)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return f, nil
}
