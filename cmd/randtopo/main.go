package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ceyonur/bal"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var cmdMain = &cobra.Command{
	Use:   "randtopo",
	Short: "Generate a random connected network of switches and hosts and run it",
	Args:  cobra.NoArgs,
	Run:   runMain,
}

var flagMain struct {
	Switches int
	Hosts    int
	MaxBW    int
	Links    int
	Seed     uint64
	IPBase   string
	Topo     string
	NodeCfg  string
	Out      string
	Trace    string
	LogLevel string
	NoShell  bool
}

func init() {
	dflt := bal.DefaultNetParams()
	cmdMain.Flags().IntVarP(&flagMain.Switches, "switches", "n", 0, "Number of switches (prompted for when not given)")
	cmdMain.Flags().IntVarP(&flagMain.Hosts, "hosts", "H", 0, "Number of hosts (prompted for when not given)")
	cmdMain.Flags().IntVarP(&flagMain.MaxBW, "max-bw", "b", 0, "Maximum link bandwidth in Mbps (prompted for when not given)")
	cmdMain.Flags().IntVar(&flagMain.Links, "links", dflt.LinkTarget, "Edge count target of the switch graph")
	cmdMain.Flags().Uint64Var(&flagMain.Seed, "seed", 0, "Seed of the random topology (taken from the clock when not given)")
	cmdMain.Flags().StringVar(&flagMain.IPBase, "ip-base", dflt.IPBase, "Address block hosts are numbered from")
	cmdMain.Flags().StringVar(&flagMain.Topo, "topo", "", "Boot the topology described in this .json or .yaml file instead of a random one")
	cmdMain.Flags().StringVar(&flagMain.NodeCfg, "node-cfg", "", "Add the node configurations of this .json or .yaml file to the pow and pos presets")
	cmdMain.Flags().StringVarP(&flagMain.Out, "out", "o", "", "Write the topology description to this .json or .yaml file")
	cmdMain.Flags().StringVar(&flagMain.Trace, "trace", "", "Write a trace of node calls to this .json or .yaml file on exit")
	cmdMain.Flags().StringVar(&flagMain.LogLevel, "log-level", "info", "Log level")
	cmdMain.Flags().BoolVar(&flagMain.NoShell, "no-shell", false, "Stop the network right after starting it")
}

func main() {
	_ = cmdMain.Execute()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		fatalf(format+": %v", append(otherArgs, err)...)
	}
}

// lineReader reads lines typed after a prompt; *readline.Instance is one
type lineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
}

// promptInt reads an integer typed after the prompt
func promptInt(lr lineReader, prompt string) (int, error) {
	lr.SetPrompt(prompt)
	line, err := lr.Readline()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(line))
}

// readCounts prompts for every count whose flag was not given, then echoes the counts
func readCounts(lr lineReader, changed func(string) bool, out io.Writer) error {
	counts := []struct {
		flag   string
		prompt string
		value  *int
	}{
		{"switches", "Number of switches:", &flagMain.Switches},
		{"hosts", "Number of hosts:", &flagMain.Hosts},
		{"max-bw", "Maximum Bandwidth:", &flagMain.MaxBW},
	}
	for _, c := range counts {
		if changed(c.flag) {
			continue
		}
		value, err := promptInt(lr, c.prompt)
		if err != nil {
			return fmt.Errorf("reading %s: %w", c.flag, err)
		}
		*c.value = value
	}
	fmt.Fprintf(out, "N=%d H=%d MaxBW=%d\n\n", flagMain.Switches, flagMain.Hosts, flagMain.MaxBW)
	return nil
}

// topology reads the description named by --topo, or else generates a random
// topology from the counts, seeding the random streams first
func topology(lr lineReader, changed func(string) bool, out io.Writer, params bal.NetParams) (*bal.TopoCfg, error) {
	if flagMain.Topo != "" {
		return bal.ReadTopoCfg(flagMain.Topo, bal.UseYAMLExt(flagMain.Topo), nil)
	}

	if err := readCounts(lr, changed, out); err != nil {
		return nil, err
	}

	seed := flagMain.Seed
	if !changed("seed") {
		seed = uint64(time.Now().UnixNano()) % (bal.MaxSeed + 1)
	}
	if err := bal.SeedRandSrcs(seed); err != nil {
		return nil, err
	}
	bal.Logger().Info().Uint64("seed", seed).Msg("random topology")

	tf, err := bal.RandomTopology(flagMain.Switches, flagMain.Hosts, flagMain.MaxBW, params, bal.NewRandSrc("topology"))
	if err != nil {
		return nil, err
	}
	tc := tf.Transform()
	return &tc, nil
}

// nodeCfgs returns the pow and pos presets, plus and overriding the
// configurations read from filename when it is not empty
func nodeCfgs(filename string) (*bal.NodeCfgDict, error) {
	cfgs := bal.DefaultNodeCfgDict()
	if filename == "" {
		return cfgs, nil
	}

	read, err := bal.ReadNodeCfgDict(filename, bal.UseYAMLExt(filename), nil)
	if err != nil {
		return nil, err
	}
	for name, cfg := range read.Cfgs {
		if err := cfgs.AddNodeCfg(name, cfg, true); err != nil {
			return nil, err
		}
	}
	return cfgs, nil
}

func runMain(cmd *cobra.Command, _ []string) {
	check(bal.SetLogLevel(flagMain.LogLevel))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bal> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	check(err)
	defer rl.Close()

	params := bal.DefaultNetParams()
	params.IPBase = flagMain.IPBase
	params.LinkTarget = flagMain.Links

	tc, err := topology(rl, cmd.Flags().Changed, os.Stdout, params)
	check(err)

	if flagMain.Out != "" {
		checkf(tc.WriteToFile(flagMain.Out), "writing %s", flagMain.Out)
	}

	cfgs, err := nodeCfgs(flagMain.NodeCfg)
	checkf(err, "reading %s", flagMain.NodeCfg)

	sim := bal.CreateLocalSim(params)
	check(sim.Build(tc))
	check(sim.Start())

	sh := newShell(sim, os.Stdout, cfgs)
	sh.trace = bal.CreateTraceManager(tc.Name, flagMain.Trace != "")
	if !flagMain.NoShell {
		rl.SetPrompt("bal> ")
		runShell(rl, sh)
	}

	check(sim.Stop())
	if flagMain.Trace != "" {
		_, err := sh.trace.WriteToFile(flagMain.Trace)
		checkf(err, "writing %s", flagMain.Trace)
	}
}

// runShell feeds the lines typed at the prompt to the shell until it quits or input ends
func runShell(lr lineReader, sh *shell) {
	for {
		line, err := lr.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		check(err)

		quit, err := sh.exec(line)
		if err != nil {
			fmt.Fprintf(sh.out, "*** %v\n", err)
		}
		if quit {
			return
		}
	}
}
