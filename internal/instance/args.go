package instance

import (
	"fmt"

	"github.com/marscredit/monorepo/internal/paths"
)

// networkID is the fixed Mars Credit chain id.
const networkID = 110110

// bootnodes is the fixed list of 4 enode URIs new peers join the network
// through. Passed verbatim to --bootnodes: Geth itself is the one that
// validates and parses these, so no enode.ParseV4 round-trip is done here.
var bootnodes = []string{
	"enode://ece899b15283b656f9b93daf5d4d77ce47470a3e550c483129f9fe96b84689f1ece899b15283b656f9b93daf5d4d77ce47470a3e550c483129f9fe96b84689f1@bootnode-1.marscredit.org:30304",
	"enode://3da10c781a1233a2f21d5244d8ba1ef2ceb79478dbbbe6e7ad569b1ebdd650b63da10c781a1233a2f21d5244d8ba1ef2ceb79478dbbbe6e7ad569b1ebdd650b6@bootnode-2.marscredit.org:30304",
	"enode://4c8cfda0fbd1ec6fb0242c98eef99a33557bd8886b53ffa8c6485bf3722eb8cb4c8cfda0fbd1ec6fb0242c98eef99a33557bd8886b53ffa8c6485bf3722eb8cb@bootnode-3.marscredit.org:30304",
	"enode://480b686f738b648111d037b95353be9b4967db2a0f103badab0cc4c647029346480b686f738b648111d037b95353be9b4967db2a0f103badab0cc4c647029346@bootnode-4.marscredit.org:30304",
}

func bootnodeURIs() []string {
	return bootnodes
}

// buildArgv composes the Geth child argument vector, bit-exact per spec §6.
func buildArgv(layout *paths.Layout, cfg Config) []string {
	p := paths.Ports(cfg.MinerIndex)
	dataDir := layout.MinerDataDir(cfg.MinerIndex)
	keystoreDir := layout.MinerKeystoreDir(cfg.MinerIndex)

	bootArg := ""
	for i, uri := range bootnodeURIs() {
		if i > 0 {
			bootArg += ","
		}
		bootArg += uri
	}

	argv := []string{
		"--datadir", dataDir,
		"--keystore", keystoreDir,
		"--syncmode", "full",
		"--gcmode", "full",
		"--http", "--http.addr", "localhost", "--http.port", fmt.Sprint(p.HTTP),
		"--http.api", "personal,eth,net,web3,miner,admin,debug",
		"--http.vhosts", "*",
		"--http.corsdomain", "*",
		"--ws", "--ws.addr", "localhost", "--ws.port", fmt.Sprint(p.WS),
		"--ws.api", "personal,eth,net,web3,miner,admin,debug",
		"--port", fmt.Sprint(p.P2P),
		"--networkid", fmt.Sprint(networkID),
		"--bootnodes", bootArg,
		"--nat", "any",
		"--mine", "--miner.threads", fmt.Sprint(cfg.MinerThreads),
		"--verbosity", "3",
		"--maxpeers", "50",
		"--cache", fmt.Sprint(cfg.CacheMB),
		"--cache.database", "75",
		"--cache.trie", "25",
		"--cache.gc", "25",
		"--cache.snapshot", "10",
		"--txpool.globalslots", "8192",
		"--txpool.globalqueue", "2048",
		"--nousb",
		"--metrics",
		"--allow-insecure-unlock",
		"--snapshot",
	}
	if cfg.Etherbase != "" {
		argv = append(argv, "--miner.etherbase", cfg.Etherbase)
	}
	return argv
}
