// Command indexerd is the composition root: it wires the RPC pool,
// checkpoint store, range scanner, progress observatory, work-steal
// arbiter, and fleet supervisor together for every chain/family this
// deployment indexes, plus the scheduler-driven marketplace, gene-backfill,
// tournament, and bargain-hunter jobs. Grounded on main.go's env-var
// feature-toggle / WaitGroup / signal.Notify shutdown idiom, generalized
// from Flow's single ingester pair to many independently toggled fleets.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"
	"time"

	"indexerfleet/internal/adapters"
	"indexerfleet/internal/bargain"
	"indexerfleet/internal/chainrpc"
	"indexerfleet/internal/codecs"
	"indexerfleet/internal/config"
	"indexerfleet/internal/families/gardening"
	"indexerfleet/internal/families/harmonylp"
	"indexerfleet/internal/families/lpstaking"
	"indexerfleet/internal/families/marketplace"
	"indexerfleet/internal/families/pve"
	"indexerfleet/internal/families/tournament"
	"indexerfleet/internal/fleet"
	"indexerfleet/internal/progress"
	"indexerfleet/internal/repository"
	"indexerfleet/internal/rpcpool"
	"indexerfleet/internal/scanner"
	"indexerfleet/internal/scheduler"
	"indexerfleet/internal/steal"
	"indexerfleet/internal/worker"

	"github.com/ethereum/go-ethereum/common"
)

func commonAddr(hex string) common.Address {
	return common.HexToAddress(hex)
}

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Initializing Indexer Fleet...")
	log.Printf("Build: %s", BuildCommit)
	log.Printf("DB: %s", redactDatabaseURL(cfg.DatabaseURL))
	log.Printf("Network: %s", config.Network())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := repository.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("Database migration SKIPPED (SKIP_MIGRATION=true)")
	} else {
		log.Println("Running database migration...")
		if err := repo.Migrate(ctx, getEnvDefault("SCHEMA_PATH", "schema.sql")); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Database migration complete.")
	}

	pool := rpcpool.New(cfg)
	heads := adapters.NewPoolHeadReader(pool)
	obs := progress.New()
	siblings := adapters.NewSiblingRegistry(obs)
	arbiter := steal.New()
	lease := worker.NewLocalLease()
	scan := scanner.NewFromPool(pool, repo)
	controller := worker.New(lease, repo, scan, obs, heads, siblings, arbiter)
	supervisor := fleet.New(heads)

	var wg sync.WaitGroup

	dfkAddrs := config.DFKAddresses()
	metisAddrs := config.MetisAddresses()
	harmonyAddrs := config.HarmonyAddresses()

	dfkViews := chainrpc.NewViews(pool, config.ChainDFK)
	metisViews := chainrpc.NewViews(pool, config.ChainMetis)
	harmonyViews := chainrpc.NewViews(pool, config.ChainHarmony)

	// LP-staking: one fleet per DFK pool, 0..MaxLPPool, 5 workers each by
	// default (§4.5, §4.8). Each pool's fleet key is independent so one
	// pool's RPC-failsafe down-step never affects another's worker count.
	if enabled("ENABLE_LP_STAKING", true) {
		for pid := 0; pid <= int(config.MaxLPPool); pid++ {
			lpPool := dfkAddrs.LPTokens[pid]
			if lpPool.LPToken == "" {
				continue
			}
			startLPStakingPool(ctx, &wg, supervisor, controller, obs, repo, dfkAddrs, dfkViews, pid, cfg)
		}
	} else {
		log.Println("LP-staking fleets are DISABLED (ENABLE_LP_STAKING=false)")
	}

	// Harmony LP-staking: single pool, fixed genesis block (§4.8).
	if enabled("ENABLE_HARMONY_LP", true) {
		startHarmonyLPPool(ctx, &wg, supervisor, controller, obs, repo, harmonyAddrs, harmonyViews, cfg)
	} else {
		log.Println("Harmony LP fleet is DISABLED (ENABLE_HARMONY_LP=false)")
	}

	// PvE: DFK hunts and Metis patrols are separate fleets against separate
	// contracts on separate chains (§4.4.2, §4.8).
	if enabled("ENABLE_PVE_DFK", true) {
		startPVEPool(ctx, &wg, supervisor, controller, obs, repo, config.ChainDFK, "pve-dfk", dfkAddrs.HuntCore, dfkAddrs, dfkViews, cfg)
	} else {
		log.Println("PvE DFK fleet is DISABLED (ENABLE_PVE_DFK=false)")
	}
	if enabled("ENABLE_PVE_METIS", true) {
		startPVEPool(ctx, &wg, supervisor, controller, obs, repo, config.ChainMetis, "pve-metis", metisAddrs.PatrolCore, metisAddrs, metisViews, cfg)
	} else {
		log.Println("PvE Metis fleet is DISABLED (ENABLE_PVE_METIS=false)")
	}

	// Gardening: DFK only.
	if enabled("ENABLE_GARDENING", true) {
		startGardeningPool(ctx, &wg, supervisor, controller, obs, repo, dfkAddrs, dfkViews, cfg)
	} else {
		log.Println("Gardening fleet is DISABLED (ENABLE_GARDENING=false)")
	}

	sched := scheduler.New()

	// Marketplace snapshot + gene backfill (§4.8.1), scheduler-driven since
	// they page a REST/GraphQL API rather than scanning block ranges.
	if enabled("ENABLE_MARKETPLACE", true) {
		startMarketplaceSchedule(ctx, sched, repo, cfg)
	} else {
		log.Println("Marketplace snapshot is DISABLED (ENABLE_MARKETPLACE=false)")
	}

	// Tournament/battles feed (§4.8.2): one shared queue, N workers.
	if enabled("ENABLE_TOURNAMENT", true) {
		startTournamentSchedule(ctx, sched, repo, cfg)
	} else {
		log.Println("Tournament fleet is DISABLED (ENABLE_TOURNAMENT=false)")
	}

	// Bargain-hunter cache (§4.10): scores regular and dark summon pairs on
	// a fixed interval.
	if enabled("ENABLE_BARGAIN_HUNTER", true) {
		startBargainSchedule(ctx, sched, repo, cfg)
	} else {
		log.Println("Bargain Hunter is DISABLED (ENABLE_BARGAIN_HUNTER=false)")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	sched.StopAll()
	cancel()
	wg.Wait()
	log.Println("Shutdown complete.")
}

// enabled reads an ENABLE_* toggle, defaulting to def when unset.
func enabled(envVar string, def bool) bool {
	v := os.Getenv(envVar)
	if v == "" {
		return def
	}
	return v != "false"
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// runTicker drives one worker's batch-then-sleep loop until ctx is done,
// the shape fleet.LaunchFn expects each launched worker to own for its own
// lifetime (§4.5, §4.7).
func runTicker(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, tick func(ctx context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := tick(ctx); err != nil && err != worker.ErrAlreadyRunning {
				log.Printf("[%s] batch error: %v", name, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func startLPStakingPool(ctx context.Context, wg *sync.WaitGroup, supervisor *fleet.Supervisor, controller *worker.Controller, obs *progress.Observatory, repo *repository.Repository, addrs *config.ContractAddresses, views *chainrpc.Views, pid int, cfg *config.Config) {
	poolKey := fmt.Sprintf("lp-staking-%d", pid)
	lpPool := addrs.LPTokens[pid]
	codec, err := codecs.NewLPStakingCodec(commonAddr(lpPool.Token0), commonAddr(lpPool.Token1))
	if err != nil {
		log.Printf("[%s] codec init failed: %v", poolKey, err)
		return
	}

	launch := func(ctx context.Context, poolKey string, a fleet.Assignment) (func(), error) {
		decoder := &lpstaking.Decoder{
			PoolID:          pid,
			ChainID:         uint64(config.ChainDFK),
			StakingContract: commonAddr(addrs.MasterGardener),
			LPToken:         commonAddr(lpPool.LPToken),
			Views:           views,
			Repo:            repo,
			Codec:           codec,
		}
		name := fmt.Sprintf("%s-w%d", poolKey, a.Index)
		cancel := obsRegisterAndRun(ctx, wg, controller, obs, name, poolKey, config.ChainDFK, "lp_staking", fmt.Sprintf("pool-%d", pid), decoder, a)
		return cancel, nil
	}

	if err := supervisor.StartPool(ctx, poolKey, config.ChainDFK, cfg.LPStakingWorkersPerPool, config.NMinLPStaking, 30*time.Second, launch); err != nil {
		log.Printf("[%s] fleet start failed: %v", poolKey, err)
	}
}

func startHarmonyLPPool(ctx context.Context, wg *sync.WaitGroup, supervisor *fleet.Supervisor, controller *worker.Controller, obs *progress.Observatory, repo *repository.Repository, addrs *config.ContractAddresses, views *chainrpc.Views, cfg *config.Config) {
	poolKey := "harmony-lp-0"
	codec, err := codecs.NewHarmonyLPCodec()
	if err != nil {
		log.Printf("[%s] codec init failed: %v", poolKey, err)
		return
	}

	launch := func(ctx context.Context, poolKey string, a fleet.Assignment) (func(), error) {
		decoder := &harmonylp.Decoder{
			PoolID:           0,
			ChainID:          uint64(config.ChainHarmony),
			StakingContract:  commonAddr(addrs.HarmonyStaking),
			ProfilesContract: commonAddr(addrs.HarmonyProfiles),
			Views:            views,
			Repo:             repo,
			Codec:            codec,
		}
		if a.RangeStart < config.HarmonyLPGenesisBlock {
			a.RangeStart = config.HarmonyLPGenesisBlock
		}
		name := fmt.Sprintf("%s-w%d", poolKey, a.Index)
		cancel := obsRegisterAndRun(ctx, wg, controller, obs, name, poolKey, config.ChainHarmony, "harmony_lp", "pool-0", decoder, a)
		return cancel, nil
	}

	if err := supervisor.StartPool(ctx, poolKey, config.ChainHarmony, cfg.LPStakingWorkersPerPool, config.NMinLPStaking, 30*time.Second, launch); err != nil {
		log.Printf("[%s] fleet start failed: %v", poolKey, err)
	}
}

func startPVEPool(ctx context.Context, wg *sync.WaitGroup, supervisor *fleet.Supervisor, controller *worker.Controller, obs *progress.Observatory, repo *repository.Repository, chain config.ChainID, poolKey, contract string, addrs *config.ContractAddresses, views *chainrpc.Views, cfg *config.Config) {
	if contract == "" {
		log.Printf("[%s] no contract configured, skipping", poolKey)
		return
	}
	codec, err := codecs.NewPVECodec()
	if err != nil {
		log.Printf("[%s] codec init failed: %v", poolKey, err)
		return
	}
	heroes := &chainrpc.HeroLuckReader{Views: views, Contract: commonAddr(addrs.HeroCore)}
	pets := &chainrpc.PetScavengerBonusReader{Views: views, Contract: commonAddr(addrs.PetCore)}

	launch := func(ctx context.Context, poolKey string, a fleet.Assignment) (func(), error) {
		decoder := &pve.Decoder{
			ChainID:  uint64(chain),
			Contract: commonAddr(contract),
			Codec:    codec,
			Heroes:   heroes,
			Pets:     pets,
			Repo:     repo,
		}
		name := fmt.Sprintf("%s-w%d", poolKey, a.Index)
		cancel := obsRegisterAndRun(ctx, wg, controller, obs, name, poolKey, chain, "pve", poolKey, decoder, a)
		return cancel, nil
	}

	if err := supervisor.StartPool(ctx, poolKey, chain, cfg.PVEWorkers, config.NMinPVE, 30*time.Second, launch); err != nil {
		log.Printf("[%s] fleet start failed: %v", poolKey, err)
	}
}

func startGardeningPool(ctx context.Context, wg *sync.WaitGroup, supervisor *fleet.Supervisor, controller *worker.Controller, obs *progress.Observatory, repo *repository.Repository, addrs *config.ContractAddresses, views *chainrpc.Views, cfg *config.Config) {
	poolKey := "gardening-dfk"
	codec, err := codecs.NewGardeningCodec()
	if err != nil {
		log.Printf("[%s] codec init failed: %v", poolKey, err)
		return
	}

	launch := func(ctx context.Context, poolKey string, a fleet.Assignment) (func(), error) {
		decoder := &gardening.Decoder{
			ChainID:        uint64(config.ChainDFK),
			RewardContract: commonAddr(addrs.RewardContract),
			QuestContract:  commonAddr(addrs.QuestCore),
			Codec:          codec,
			Views:          views,
			Repo:           repo,
		}
		name := fmt.Sprintf("%s-w%d", poolKey, a.Index)
		cancel := obsRegisterAndRun(ctx, wg, controller, obs, name, poolKey, config.ChainDFK, "gardening", "dfk", decoder, a)
		return cancel, nil
	}

	if err := supervisor.StartPool(ctx, poolKey, config.ChainDFK, cfg.GardeningWorkers, config.NMinGardening, 30*time.Second, launch); err != nil {
		log.Printf("[%s] fleet start failed: %v", poolKey, err)
	}
}

// obsRegisterAndRun registers a worker's assigned range with the progress
// observatory and starts its batch-then-sleep ticker loop, the per-worker
// lifetime every fleet.LaunchFn hands off to (§4.5). It derives its own
// cancelable context from the pool-wide ctx and returns the cancel func so
// the fleet supervisor can tear this one worker down independently of
// process shutdown, when a down-step retry requires it (§4.7).
func obsRegisterAndRun(ctx context.Context, wg *sync.WaitGroup, controller *worker.Controller, obs *progress.Observatory, name, fleetKey string, chain config.ChainID, indexerType, scope string, decoder scanner.Decoder, a fleet.Assignment) func() {
	batchSize := uint64(200_000)
	if indexerType == "pve" {
		batchSize = 100_000
	}
	spec := worker.Spec{
		Name:        name,
		FleetKey:    fleetKey,
		Chain:       chain,
		IndexerType: indexerType,
		Scope:       scope,
		Decoder:     decoder,
		RangeStart:  a.RangeStart,
		RangeEnd:    a.RangeEnd,
		BatchSize:   batchSize,
	}
	rangeEnd := uint64(0)
	if a.RangeEnd != nil {
		rangeEnd = *a.RangeEnd
	}
	obs.Register(fleetKey, name, a.RangeStart, rangeEnd)
	workerCtx, cancel := context.WithCancel(ctx)
	runTicker(workerCtx, wg, name, 2*time.Second, func(ctx context.Context) error {
		return controller.RunOnce(ctx, spec)
	})
	return cancel
}

func startMarketplaceSchedule(ctx context.Context, sched *scheduler.Scheduler, repo *repository.Repository, cfg *config.Config) {
	fetch := adapters.NewMarketplaceFetcher(cfg.MarketplaceAPIURL)
	genes := adapters.NewGeneFetcher(cfg.GenesGraphQLURL)
	snapshot := &marketplace.Snapshot{Fetch: fetch, Repo: repo}
	backfiller := &marketplace.GeneBackfiller{Fetch: genes, Repo: repo}

	pageSize := 100
	if err := sched.Start(ctx, "marketplace-snapshot", cfg.SchedulerInterval, func(ctx context.Context) error {
		n, err := snapshot.RunFleet(ctx, pageSize, time.Now().UTC().Format("20060102T150405"))
		if err != nil {
			return err
		}
		log.Printf("[marketplace] upserted %d heroes", n)
		return nil
	}); err != nil {
		log.Printf("[marketplace] schedule start failed: %v", err)
	}

	if err := sched.Start(ctx, "gene-backfill", cfg.SchedulerInterval, func(ctx context.Context) error {
		n, err := backfiller.RunOnce(ctx, cfg.GeneBackfillWorkers*50)
		if err != nil {
			return err
		}
		log.Printf("[gene-backfill] resolved %d heroes (rate-limit hits=%d)", n, backfiller.RateLimitHits)
		return nil
	}); err != nil {
		log.Printf("[gene-backfill] schedule start failed: %v", err)
	}
}

func startTournamentSchedule(ctx context.Context, sched *scheduler.Scheduler, repo *repository.Repository, cfg *config.Config) {
	fetch := adapters.NewTournamentFetcher(cfg.BattlesGraphQLURL)
	queue := tournament.NewQueue(cfg.TournamentWorkers*200, 50)
	w := &tournament.Worker{Queue: queue, Fetch: fetch, Repo: repo}

	if err := sched.Start(ctx, "tournament", cfg.SchedulerInterval, func(ctx context.Context) error {
		n, err := w.Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("[tournament] wrote %d battles", n)
		return nil
	}); err != nil {
		log.Printf("[tournament] schedule start failed: %v", err)
	}
}

func startBargainSchedule(ctx context.Context, sched *scheduler.Scheduler, repo *repository.Repository, cfg *config.Config) {
	prices := adapters.NewPriceSource(cfg.PriceAPIURL)
	summon := adapters.NewSummonEngine(cfg.SummonEngineURL)
	engine := &bargain.Engine{Prices: prices, Heroes: repo, Repo: repo, Summon: summon}

	if err := sched.Start(ctx, "bargain-hunter", cfg.SchedulerInterval, func(ctx context.Context) error {
		if err := engine.Run(ctx, bargain.SummonRegular); err != nil {
			return fmt.Errorf("regular: %w", err)
		}
		if err := engine.Run(ctx, bargain.SummonDark); err != nil {
			return fmt.Errorf("dark: %w", err)
		}
		return nil
	}); err != nil {
		log.Printf("[bargain-hunter] schedule start failed: %v", err)
	}
}

func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		if u.User != nil {
			user := u.User.Username()
			if user == "" {
				user = "user"
			}
			u.User = url.UserPassword(user, "****")
		}
		u.RawQuery = ""
		return u.String()
	}
	re := regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/?#]+):([^@]+)@`)
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, `$1:****@`)
	}
	return raw
}
