package bal

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// A NodeCfgDict holds node configurations in a map whose key is a name
// for the configuration, e.g. "pow" or "pos"
type NodeCfgDict struct {
	DictName string             `json:"dictname" yaml:"dictname"`
	Cfgs     map[string]NodeCfg `json:"cfgs" yaml:"cfgs"`
}

// CreateNodeCfgDict is a constructor. Saves the dictionary name, initializes the NodeCfg map.
func CreateNodeCfgDict(name string) *NodeCfgDict {
	ncd := new(NodeCfgDict)
	ncd.DictName = name
	ncd.Cfgs = make(map[string]NodeCfg)
	return ncd
}

// DefaultNodeCfgDict returns a dictionary holding the proof-of-work
// preset as "pow" and the proof-of-stake preset as "pos"
func DefaultNodeCfgDict() *NodeCfgDict {
	ncd := CreateNodeCfgDict("presets")
	ncd.Cfgs["pow"] = POWNodeCfg()
	ncd.Cfgs["pos"] = POSNodeCfg()
	return ncd
}

// AddNodeCfg includes a NodeCfg into the dictionary, optionally returning an error
// if a NodeCfg with the same name has already been included
func (ncd *NodeCfgDict) AddNodeCfg(name string, cfg NodeCfg, overwrite bool) error {
	if !overwrite {
		if _, present := ncd.Cfgs[name]; present {
			return fmt.Errorf("attempt to overwrite NodeCfg %s in NodeCfgDict", name)
		}
	}
	ncd.Cfgs[name] = cfg
	return nil
}

// RecoverNodeCfg returns a copy (if one exists) of the NodeCfg with name equal to the input argument name.
// Returns a boolean indicating whether the entry was actually found
func (ncd *NodeCfgDict) RecoverNodeCfg(name string) (NodeCfg, bool) {
	cfg, present := ncd.Cfgs[name]
	return cfg, present
}

// WriteToFile serializes the NodeCfgDict and writes to the file whose name is given as an input argument.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (ncd *NodeCfgDict) WriteToFile(filename string) error {
	return writeByExt(filename, *ncd)
}

// ReadNodeCfgDict deserializes a slice of bytes into a NodeCfgDict.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.
func ReadNodeCfgDict(filename string, useYAML bool, dict []byte) (*NodeCfgDict, error) {
	dict, err := readDict(filename, "node configuration dict", dict)
	if err != nil {
		return nil, err
	}

	example := NodeCfgDict{}
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}
	return &example, nil
}
