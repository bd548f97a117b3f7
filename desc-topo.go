package bal

// file desc-topo.go holds structs, methods, and data structures supporting
// the construction of, and access to, descriptions of simulated networks
// of switches and hosts

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// device type codes
const (
	SwitchType = "Switch"
	HostType   = "Host"
)

// To most easily serialize and deserialize the structs describing a network we
// keep two representations of each.  The one with the final appellation 'Frame'
// holds pointers and is used while the network is being built.  The pointer free
// version has the final appellation 'Desc', and is what gets written to file.

// The NetDevice interface lets us use common code when switches and hosts
// are involved in model construction.
type NetDevice interface {
	DevName() string                 // returns the .Name field of the struct
	DevType() string                 // returns the type ("Switch","Host")
	DevInterfaces() []*IntrfcFrame   // list of interfaces attached to the NetDevice, if any
	DevAddIntrfc(*IntrfcFrame) error // function to add another interface to the NetDevice
}

// IntrfcDesc defines a serializable description of a network interface
type IntrfcDesc struct {
	// name for interface, unique among interfaces on its device
	Name string `json:"name" yaml:"name"`

	// type of device that is home to this interface, i.e., "Switch", "Host"
	DevType string `json:"devtype" yaml:"devtype"`

	// name of the switch or host on which this interface is resident
	Device string `json:"device" yaml:"device"`

	// name of interface (on a different device) to which this interface is cabled
	Cable string `json:"cable" yaml:"cable"`

	// bandwidth of the cable, in Mbps
	Bndwdth int `json:"bndwdth" yaml:"bndwdth"`
}

// IntrfcFrame gives a pre-serializable description of an interface, used in model construction.
type IntrfcFrame struct {
	Name    string
	DevType string
	Device  string

	// pointer to interface (on a different device) to which this interface is cabled
	Cable *IntrfcFrame

	Bndwdth int
}

// CreateIntrfc is a constructor for [IntrfcFrame]; the interface is not yet cabled
func CreateIntrfc(device, name, devType string) *IntrfcFrame {
	intrfc := new(IntrfcFrame)
	intrfc.Device = device
	intrfc.Name = name
	intrfc.DevType = devType
	return intrfc
}

// CableIntrfcFrames links two interfaces through their 'Cable' attributes
func CableIntrfcFrames(intrfc1, intrfc2 *IntrfcFrame, bndwdth int) {
	intrfc1.Cable = intrfc2
	intrfc2.Cable = intrfc1
	intrfc1.Bndwdth = bndwdth
	intrfc2.Bndwdth = bndwdth
}

// Transform converts an IntrfcFrame and returns an IntrfcDesc, for serialization.
func (ifcf *IntrfcFrame) Transform() IntrfcDesc {
	intrfcDesc := IntrfcDesc{Name: ifcf.Name, DevType: ifcf.DevType, Device: ifcf.Device, Bndwdth: ifcf.Bndwdth}
	if ifcf.Cable != nil {
		intrfcDesc.Cable = ifcf.Cable.Name
	}
	return intrfcDesc
}

// SwitchDesc holds a serializable representation of a switch.
type SwitchDesc struct {
	Name       string       `json:"name" yaml:"name"`
	Model      string       `json:"model" yaml:"model"`
	FailMode   string       `json:"failmode" yaml:"failmode"`
	Interfaces []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// SwitchFrame holds a pre-serialization representation of a Switch
type SwitchFrame struct {
	Name       string // unique string identifier used to reference the switch
	Model      string
	FailMode   string         // "standalone" or "secure"
	Interfaces []*IntrfcFrame // interface frames that describe the ports of the switch
}

// CreateSwitch constructs a switch frame
func CreateSwitch(name, model, failMode string) *SwitchFrame {
	sf := new(SwitchFrame)
	sf.Name = name
	sf.Model = model
	sf.FailMode = failMode
	sf.Interfaces = make([]*IntrfcFrame, 0)
	return sf
}

// AddIntrfc includes a new interface frame for the switch.  Error is returned
// if the interface (or one with the same name) is already attached to the SwitchFrame
func (sf *SwitchFrame) AddIntrfc(iff *IntrfcFrame) error {
	for _, ih := range sf.Interfaces {
		if ih == iff || ih.Name == iff.Name {
			return fmt.Errorf("attempt to re-add interface %s to switch %s", iff.Name, sf.Name)
		}
	}

	// ensure that the interface has stored the home device type and name
	iff.Device = sf.Name
	iff.DevType = SwitchType
	sf.Interfaces = append(sf.Interfaces, iff)
	return nil
}

// DevName returns name for the NetDevice
func (sf *SwitchFrame) DevName() string {
	return sf.Name
}

// DevType returns the type of the NetDevice
func (sf *SwitchFrame) DevType() string {
	return SwitchType
}

// DevInterfaces returns list of IntrfcFrames attached to the NetDevice, if any
func (sf *SwitchFrame) DevInterfaces() []*IntrfcFrame {
	return sf.Interfaces
}

// DevAddIntrfc adds an IntrfcFrame to the NetDevice
func (sf *SwitchFrame) DevAddIntrfc(iff *IntrfcFrame) error {
	return sf.AddIntrfc(iff)
}

// Transform returns a serializable SwitchDesc, transformed from a SwitchFrame.
func (sf *SwitchFrame) Transform() SwitchDesc {
	sd := SwitchDesc{Name: sf.Name, Model: sf.Model, FailMode: sf.FailMode}

	sd.Interfaces = make([]IntrfcDesc, len(sf.Interfaces))
	for idx := 0; idx < len(sf.Interfaces); idx += 1 {
		sd.Interfaces[idx] = sf.Interfaces[idx].Transform()
	}
	return sd
}

// HostDesc defines serializable representation of a host.
type HostDesc struct {
	Name       string       `json:"name" yaml:"name"`
	Model      string       `json:"model" yaml:"model"`
	IP         string       `json:"ip" yaml:"ip"`
	CPU        float64      `json:"cpu" yaml:"cpu"`
	Interfaces []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// HostFrame defines pre-serialization representation of a Host
type HostFrame struct {
	Name  string
	Model string
	IP    string

	// fraction of the machine's cpu the host is limited to, in (0,1]
	CPU float64

	Interfaces []*IntrfcFrame
}

// CreateHost is a constructor.  cpu is the host's share of the cpu
func CreateHost(name, model, ip string, cpu float64) *HostFrame {
	hf := new(HostFrame)
	hf.Name = name
	hf.Model = model
	hf.IP = ip
	hf.CPU = cpu
	hf.Interfaces = make([]*IntrfcFrame, 0)
	return hf
}

// AddIntrfc includes a new interface frame for the host.
// An error is reported if this specific (by pointer value or by name) interface is already connected.
func (hf *HostFrame) AddIntrfc(iff *IntrfcFrame) error {
	for _, ih := range hf.Interfaces {
		if ih == iff || ih.Name == iff.Name {
			return fmt.Errorf("attempt to re-add interface %s to host %s", iff.Name, hf.Name)
		}
	}

	iff.DevType = HostType
	iff.Device = hf.Name
	hf.Interfaces = append(hf.Interfaces, iff)
	return nil
}

// DevName returns the NetDevice name
func (hf *HostFrame) DevName() string {
	return hf.Name
}

// DevType returns the type of the NetDevice
func (hf *HostFrame) DevType() string {
	return HostType
}

// DevInterfaces returns list of IntrfcFrames attached to the NetDevice, if any
func (hf *HostFrame) DevInterfaces() []*IntrfcFrame {
	return hf.Interfaces
}

// DevAddIntrfc adds an IntrfcFrame to the NetDevice
func (hf *HostFrame) DevAddIntrfc(iff *IntrfcFrame) error {
	return hf.AddIntrfc(iff)
}

// Transform returns a serializable HostDesc, transformed from a HostFrame.
func (hf *HostFrame) Transform() HostDesc {
	hd := HostDesc{Name: hf.Name, Model: hf.Model, IP: hf.IP, CPU: hf.CPU}

	hd.Interfaces = make([]IntrfcDesc, len(hf.Interfaces))
	for idx := 0; idx < len(hf.Interfaces); idx += 1 {
		hd.Interfaces[idx] = hf.Interfaces[idx].Transform()
	}
	return hd
}

// LinkDesc names the two devices a link joins and the link bandwidth (Mbps)
type LinkDesc struct {
	Dev1    string `json:"dev1" yaml:"dev1"`
	Dev2    string `json:"dev2" yaml:"dev2"`
	Bndwdth int    `json:"bndwdth" yaml:"bndwdth"`
}

// The TopoCfgFrame struct gives the highest level structure of the topology,
// is ultimately the encompassing dictionary in the serialization
type TopoCfgFrame struct {
	Name     string
	Switches []*SwitchFrame
	Hosts    []*HostFrame
	Links    []LinkDesc

	// lets you use a name to look up a device
	devByName map[string]NetDevice
}

// CreateTopoCfgFrame is a constructor.
func CreateTopoCfgFrame(name string) *TopoCfgFrame {
	tf := new(TopoCfgFrame)
	tf.Name = name
	tf.Switches = make([]*SwitchFrame, 0)
	tf.Hosts = make([]*HostFrame, 0)
	tf.Links = make([]LinkDesc, 0)
	tf.devByName = make(map[string]NetDevice)
	return tf
}

// AddSwitch includes a switch in the topology. Device names are unique across the topology.
func (tf *TopoCfgFrame) AddSwitch(swtch *SwitchFrame) error {
	if _, present := tf.devByName[swtch.Name]; present {
		return fmt.Errorf("device name %s already used in topology %s", swtch.Name, tf.Name)
	}
	tf.devByName[swtch.Name] = swtch
	tf.Switches = append(tf.Switches, swtch)
	return nil
}

// AddHost includes a host in the topology. Device names are unique across the topology.
func (tf *TopoCfgFrame) AddHost(host *HostFrame) error {
	if _, present := tf.devByName[host.Name]; present {
		return fmt.Errorf("device name %s already used in topology %s", host.Name, tf.Name)
	}
	tf.devByName[host.Name] = host
	tf.Hosts = append(tf.Hosts, host)
	return nil
}

// Dev returns the device with the given name, if any
func (tf *TopoCfgFrame) Dev(name string) (NetDevice, bool) {
	dev, present := tf.devByName[name]
	return dev, present
}

// ConnectDevs cables dev1 to dev2 with a link of the given bandwidth, creating
// one new interface on each device. Both devices must already be part of the topology.
func (tf *TopoCfgFrame) ConnectDevs(dev1, dev2 NetDevice, bndwdth int) error {
	if dev1.DevName() == dev2.DevName() {
		return fmt.Errorf("attempt to connect device %s to itself", dev1.DevName())
	}
	for _, dev := range []NetDevice{dev1, dev2} {
		if _, present := tf.devByName[dev.DevName()]; !present {
			return fmt.Errorf("device %s is not part of topology %s", dev.DevName(), tf.Name)
		}
	}

	// interface names follow the <device>-eth<n> convention, numbered from 0.
	// Both names are checked before either device changes.
	intrfc1 := CreateIntrfc(dev1.DevName(), fmt.Sprintf("%s-eth%d", dev1.DevName(), len(dev1.DevInterfaces())), dev1.DevType())
	intrfc2 := CreateIntrfc(dev2.DevName(), fmt.Sprintf("%s-eth%d", dev2.DevName(), len(dev2.DevInterfaces())), dev2.DevType())
	for _, pair := range []struct {
		dev    NetDevice
		intrfc *IntrfcFrame
	}{{dev1, intrfc1}, {dev2, intrfc2}} {
		if hasIntrfc(pair.dev, pair.intrfc.Name) {
			return fmt.Errorf("interface %s already on device %s", pair.intrfc.Name, pair.dev.DevName())
		}
	}

	if err := dev1.DevAddIntrfc(intrfc1); err != nil {
		return err
	}
	if err := dev2.DevAddIntrfc(intrfc2); err != nil {
		return err
	}
	CableIntrfcFrames(intrfc1, intrfc2, bndwdth)

	tf.Links = append(tf.Links, LinkDesc{Dev1: dev1.DevName(), Dev2: dev2.DevName(), Bndwdth: bndwdth})
	return nil
}

// hasIntrfc reports whether dev has an interface of the given name
func hasIntrfc(dev NetDevice, name string) bool {
	for _, intrfc := range dev.DevInterfaces() {
		if intrfc.Name == name {
			return true
		}
	}
	return false
}

// Transform transforms the slices of pointers to network objects
// into slices of instances of those objects, for serialization
func (tf *TopoCfgFrame) Transform() TopoCfg {
	tc := TopoCfg{Name: tf.Name}

	tc.Switches = make([]SwitchDesc, 0, len(tf.Switches))
	for _, sf := range tf.Switches {
		tc.Switches = append(tc.Switches, sf.Transform())
	}

	tc.Hosts = make([]HostDesc, 0, len(tf.Hosts))
	for _, hf := range tf.Hosts {
		tc.Hosts = append(tc.Hosts, hf.Transform())
	}

	tc.Links = make([]LinkDesc, len(tf.Links))
	copy(tc.Links, tf.Links)
	return tc
}

// TopoCfg contains all of the switches, hosts, and links,
// as they are listed in the json or yaml file.
type TopoCfg struct {
	Name     string       `json:"name" yaml:"name"`
	Switches []SwitchDesc `json:"switches" yaml:"switches"`
	Hosts    []HostDesc   `json:"hosts" yaml:"hosts"`
	Links    []LinkDesc   `json:"links" yaml:"links"`
}

// HostDesc returns the description of the named host, if present
func (tc *TopoCfg) HostDesc(name string) (*HostDesc, bool) {
	for idx := range tc.Hosts {
		if tc.Hosts[idx].Name == name {
			return &tc.Hosts[idx], true
		}
	}
	return nil, false
}

// UseYAMLExt reports whether the file name extension selects yaml; any other
// extension selects json
func UseYAMLExt(filename string) bool {
	pathExt := path.Ext(filename)
	return pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml"
}

// marshalByExt serializes v to json or to yaml, as selected by the extension of filename
func marshalByExt(filename string, v any) ([]byte, error) {
	if UseYAMLExt(filename) {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "\t")
}

// writeByExt serializes v and writes it to filename
func writeByExt(filename string, v any) error {
	bytes, err := marshalByExt(filename, v)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0644)
}

// readDict returns dict unchanged unless it is empty, in which case the named file is read
func readDict(filename, what string, dict []byte) ([]byte, error) {
	if len(dict) > 0 {
		return dict, nil
	}
	fileInfo, err := os.Stat(filename)
	if err != nil || fileInfo.IsDir() {
		return nil, fmt.Errorf("%s %s does not exist or cannot be read", what, filename)
	}
	return os.ReadFile(filename)
}

// WriteToFile serializes the TopoCfg and writes to the file whose name is given as an input argument.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (tc *TopoCfg) WriteToFile(filename string) error {
	return writeByExt(filename, *tc)
}

// ReadTopoCfg deserializes a slice of bytes into a TopoCfg.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.  Error returned if
// any part of the process generates the error.
func ReadTopoCfg(topoFileName string, useYAML bool, dict []byte) (*TopoCfg, error) {
	dict, err := readDict(topoFileName, "topology", dict)
	if err != nil {
		return nil, err
	}

	example := TopoCfg{}
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

// errList is the error ReportErrs returns; errors.Is and errors.As see every constituent
type errList []error

func (el errList) Error() string {
	errMsg := make([]string, 0, len(el))
	for _, err := range el {
		errMsg = append(errMsg, err.Error())
	}
	return strings.Join(errMsg, ",")
}

func (el errList) Unwrap() []error {
	return el
}

// ReportErrs gathers the non-nil errors of a list into a single error
// with comma-separated report of all the constituent errors, and returns it.
func ReportErrs(errs []error) error {
	el := make(errList, 0)
	for _, err := range errs {
		if err != nil {
			el = append(el, err)
		}
	}
	if len(el) == 0 {
		return nil
	}
	return el
}
