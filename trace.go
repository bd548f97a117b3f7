package bal

import (
	"time"
)

// CallTrace records one client call made by a node
type CallTrace struct {
	Time    string `json:"time" yaml:"time"`
	Command string `json:"command" yaml:"command"`
	Result  string `json:"result" yaml:"result"`
	Err     string `json:"err,omitempty" yaml:"err,omitempty"`
}

// TraceManager gathers the client calls made during a simulation, by host name
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// all trace records for this experiment, keyed by host name
	Traces map[string][]CallTrace `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.Traces = make(map[string][]CallTrace)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddCallTrace creates a record of a call using its arguments, and stores it
func (tm *TraceManager) AddCallTrace(host, command, result string, err error) {
	if !tm.InUse {
		return
	}

	ct := CallTrace{Time: time.Now().Format(time.RFC3339Nano), Command: command, Result: result}
	if err != nil {
		ct.Err = err.Error()
	}
	tm.Traces[host] = append(tm.Traces[host], ct)
}

// WriteToFile stores the TraceManager struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// Nothing is written, and false returned, when the trace manager is not in use.
func (tm *TraceManager) WriteToFile(filename string) (bool, error) {
	if !tm.InUse {
		return false, nil
	}
	if err := writeByExt(filename, *tm); err != nil {
		return false, err
	}
	return true, nil
}
