package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/greenfield-ag/farmtrack-client/internal/api"
	"github.com/greenfield-ag/farmtrack-client/internal/crops"
	"github.com/greenfield-ag/farmtrack-client/internal/inventory"
	"github.com/greenfield-ag/farmtrack-client/pkg/config"
	"github.com/greenfield-ag/farmtrack-client/pkg/logger"
	"github.com/greenfield-ag/farmtrack-client/pkg/metrics"
	"github.com/greenfield-ag/farmtrack-client/pkg/session"
)

const usage = `usage: farmtrack <command> [flags]

commands:
  inventory list
  inventory add    -name NAME -category ID [-unit UNIT] [-quantity N]
  inventory delete -id ID
  inventory adjust -id ID -delta N
  crops list
  crops add        -name NAME -planted DATE [-variety V] [-harvest DATE] [-use itemId:qty ...]
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "farmtrack"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "farmtrack",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	sess := session.New(cfg.Backend.AuthToken)
	apiMetrics := metrics.NewAPIMetrics(prometheus.NewRegistry())

	client, err := api.NewClient(api.ClientParams{
		Backend: cfg.Backend,
		Session: sess,
		Logger:  logg,
		Metrics: apiMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to build api client", err)
		os.Exit(1)
	}

	invStore, err := inventory.NewStore(inventory.StoreParams{Client: client, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to build inventory store", err)
		os.Exit(1)
	}
	cropStore, err := crops.NewStore(crops.StoreParams{Client: client, Inventory: invStore, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to build crop store", err)
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	err = dispatch(ctx, os.Args[1], os.Args[2], os.Args[3:], invStore, cropStore)
	if err != nil {
		logg.Error(ctx, "command failed", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, domain, action string, args []string, invStore *inventory.Store, cropStore *crops.Store) error {
	switch domain + " " + action {
	case "inventory list":
		return inventoryList(ctx, invStore)
	case "inventory add":
		return inventoryAdd(ctx, invStore, args)
	case "inventory delete":
		return inventoryDelete(ctx, invStore, args)
	case "inventory adjust":
		return inventoryAdjust(ctx, invStore, args)
	case "crops list":
		return cropsList(ctx, cropStore)
	case "crops add":
		return cropsAdd(ctx, invStore, cropStore, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", domain+" "+action)
	}
}

func inventoryList(ctx context.Context, store *inventory.Store) error {
	if err := store.Load(ctx); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tUNIT\tQUANTITY")
	for _, item := range store.Items() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", item.ID, item.Name, item.Category, item.Unit, item.Quantity)
	}
	return w.Flush()
}

func inventoryAdd(ctx context.Context, store *inventory.Store, args []string) error {
	fs := flag.NewFlagSet("inventory add", flag.ExitOnError)
	name := fs.String("name", "", "item name")
	category := fs.String("category", "", "category id")
	unit := fs.String("unit", "", "unit of measure")
	quantity := fs.Int("quantity", 0, "initial stock quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Creating needs the category list loaded for the optimistic-append check.
	if err := store.Load(ctx); err != nil {
		return err
	}
	return store.Save(ctx, inventory.ItemInput{
		Name:     *name,
		Category: *category,
		Unit:     *unit,
		Quantity: *quantity,
	}, "")
}

func inventoryDelete(ctx context.Context, store *inventory.Store, args []string) error {
	fs := flag.NewFlagSet("inventory delete", flag.ExitOnError)
	id := fs.String("id", "", "item id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return store.Delete(ctx, *id)
}

func inventoryAdjust(ctx context.Context, store *inventory.Store, args []string) error {
	fs := flag.NewFlagSet("inventory adjust", flag.ExitOnError)
	id := fs.String("id", "", "item id")
	delta := fs.Int("delta", 0, "signed quantity change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return store.AdjustQuantity(ctx, *id, *delta)
}

func cropsList(ctx context.Context, cropStore *crops.Store) error {
	if err := cropStore.Load(ctx); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVARIETY\tPLANTED\tHARVEST\tUSED ITEMS")
	for _, crop := range cropStore.Crops() {
		used := make([]string, 0, len(crop.UsedItems))
		for _, li := range crop.UsedItems {
			used = append(used, fmt.Sprintf("%s x%d", li.ItemName, li.Quantity))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			crop.ID, crop.Name, crop.Variety, crop.PlantingDate, crop.HarvestDate, strings.Join(used, ", "))
	}
	return w.Flush()
}

func cropsAdd(ctx context.Context, invStore *inventory.Store, cropStore *crops.Store, args []string) error {
	fs := flag.NewFlagSet("crops add", flag.ExitOnError)
	name := fs.String("name", "", "crop name")
	variety := fs.String("variety", "", "crop variety")
	planted := fs.String("planted", "", "planting date (YYYY-MM-DD)")
	harvest := fs.String("harvest", "", "expected harvest date (YYYY-MM-DD)")
	var uses useFlags
	fs.Var(&uses, "use", "consumed resource as itemId:qty (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Name resolution for consumed resources reads the inventory snapshot.
	if err := invStore.Load(ctx); err != nil {
		return err
	}
	return cropStore.Add(ctx, crops.AddInput{
		Name:              *name,
		Variety:           *variety,
		PlantedOn:         *planted,
		HarvestOn:         *harvest,
		ConsumedResources: uses.entries,
	})
}

// useFlags collects repeated -use itemId:qty flags.
type useFlags struct {
	entries []crops.ResourceInput
}

func (u *useFlags) String() string {
	parts := make([]string, 0, len(u.entries))
	for _, e := range u.entries {
		parts = append(parts, e.ItemID+":"+e.Quantity)
	}
	return strings.Join(parts, ",")
}

func (u *useFlags) Set(value string) error {
	itemID, qty, found := strings.Cut(value, ":")
	if !found {
		return fmt.Errorf("expected itemId:qty, got %q", value)
	}
	u.entries = append(u.entries, crops.ResourceInput{ItemID: itemID, Quantity: qty})
	return nil
}
