package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tlsprobe/internal/credentials"
	"github.com/muurk/tlsprobe/internal/discovery"
	"github.com/muurk/tlsprobe/internal/policy"
	"github.com/muurk/tlsprobe/internal/ui"
)

// Gencert command and flags
var (
	certOut  string
	keyOut   string
	genHosts []string
	genDays  int
	genRSA   bool
)

var gencertCmd = &cobra.Command{
	Use:   "gencert",
	Short: "Write a self-signed certificate and key for testing",
	Long: `Generate a self-signed server certificate and private key in PEM form.

The key is ECDSA P-256 unless --rsa is given. Use --rsa for policies that only
offer RSA key exchange, such as cc3200.`,
	Example: `  # localhost certificate valid for 30 days
  tlsprobe gencert

  # Certificate for a LAN name, RSA key
  tlsprobe gencert --host probe.lan --host 192.168.1.20 --rsa`,
	Args: cobra.NoArgs,
	RunE: runGencert,
}

func init() {
	defaults := credentials.DefaultParams()
	gencertCmd.Flags().StringVar(&certOut, "cert-out", "cert.pem", "Certificate output path")
	gencertCmd.Flags().StringVar(&keyOut, "key-out", "key.pem", "Private key output path")
	gencertCmd.Flags().StringArrayVar(&genHosts, "host", defaults.Hosts, "DNS name or IP address for the certificate (repeatable)")
	gencertCmd.Flags().IntVar(&genDays, "days", defaults.ValidDays, "Validity in days")
	gencertCmd.Flags().BoolVar(&genRSA, "rsa", false, "Generate an RSA-2048 key instead of ECDSA P-256")
}

func runGencert(cmd *cobra.Command, args []string) error {
	hosts, err := credentials.ParseHosts(genHosts)
	if err != nil {
		return err
	}

	params := credentials.DefaultParams()
	params.Hosts = hosts
	params.ValidDays = genDays
	params.RSA = genRSA

	generated, err := credentials.Generate(params)
	if err != nil {
		return err
	}
	if err := generated.WriteFiles(certOut, keyOut); err != nil {
		return err
	}

	leaf := generated.Certificate
	ui.NewPrinter(nil).PrintSuccess("Self-signed certificate written", ui.Fields{
		{Key: "Certificate", Value: certOut},
		{Key: "Key", Value: keyOut},
		{Key: "Subject", Value: leaf.Subject.String()},
		{Key: "Hosts", Value: strings.Join(hosts, ", ")},
		{Key: "Algorithm", Value: leaf.PublicKeyAlgorithm.String()},
		{Key: "Not after", Value: leaf.NotAfter.Format(time.RFC3339)},
	})
	return nil
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect TLS policies",
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in TLS policies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range policy.Names() {
			p, err := policy.Load(name)
			if err != nil {
				return err
			}
			fmt.Printf("%-12s %s\n", name, p.Description)
		}
		return nil
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show <name|file>",
	Short: "Print a policy as YAML",
	Long: `Print a policy in the YAML form accepted by --policy.

The output of a built-in policy is a good starting point for a custom one.`,
	Example: `  tlsprobe policy show strict > mypolicy.yaml
  tlsprobe tls_http_server cert.pem key.pem --policy ./mypolicy.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := policy.Load(args[0])
		if err != nil {
			return err
		}
		out, err := p.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyShowCmd)
}

var scanTimeout time.Duration

// scanCmd finds advertised tlsprobe servers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find tlsprobe servers advertised over mDNS",
	Long: `Browse for tlsprobe servers started with --advertise.

Servers are found through mDNS/DNS-SD under ` + discovery.ServiceType + `.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for advertisements")
}

func runScan(cmd *cobra.Command, args []string) error {
	var probes []*discovery.Probe
	label := fmt.Sprintf("Scanning for tlsprobe servers (timeout: %s)...", scanTimeout)
	err := ui.RunWithSpinner(label, func() error {
		var err error
		probes, err = discovery.ScanForProbes(scanTimeout)
		return err
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	printer := ui.NewPrinter(nil)
	if len(probes) == 0 {
		printer.Println("No servers found.")
		return nil
	}

	printer.Println(fmt.Sprintf("Found %d server(s):", len(probes)))
	printer.Newline()
	for i, p := range probes {
		printer.Println(fmt.Sprintf("%d. %s", i+1, p.Instance))
		printer.PrintFields(probeFields(p))
		printer.Newline()
	}
	return nil
}

func probeFields(p *discovery.Probe) ui.Fields {
	fields := ui.Fields{}.
		Add("Address", p.Address()).
		Add("URL", p.StatusURL())
	if v := p.GetMetadata("version"); v != "" {
		fields = fields.Add("Version", v)
	}
	if pol := p.GetMetadata("policy"); pol != "" {
		fields = fields.Add("Policy", pol)
	}
	return fields
}
