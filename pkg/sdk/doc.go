// Package discovery embeds the provider discovery engine in-process: geographic
// provider search over a Valkey, Redis or bleve backed index, kept current by
// applying provider lifecycle events.
//
// # Search
//
//	client, _ := discovery.New(ctx, discovery.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	lat, lng, radius := -23.5505, -46.6333, 10.0
//	page, _ := client.Search(ctx, discovery.SearchParams{
//	    Latitude:  &lat,
//	    Longitude: &lng,
//	    RadiusKm:  &radius,
//	    Tiers:     []string{"Gold", "Platinum"},
//	})
//
// # Keeping the index current
//
//	_ = client.Apply(ctx, discovery.Event{
//	    Kind:       discovery.EventActivated,
//	    ProviderID: providerID,
//	    Snapshot:   &discovery.Snapshot{Name: &name, Latitude: &lat, Longitude: &lng},
//	})
//
// Events without an embedded snapshot are resolved against the providers
// module when WithProvidersAPI is set.
package discovery
