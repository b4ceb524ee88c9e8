package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/registry"
	"github.com/dreamware/librarian/internal/resource"
)

func TestRouteSearchUnionAcrossGroups(t *testing.T) {
	reg := registry.New()
	k1, err := reg.Connect(protocol.ConnectRequest{Hostname: "h1", Port: 1, GroupID: "g1", SupportedTypes: []resource.Type{resource.Page}})
	require.NoError(t, err)
	k2, err := reg.Connect(protocol.ConnectRequest{Hostname: "h2", Port: 2, GroupID: "g2", SupportedTypes: []resource.Type{resource.Page}})
	require.NoError(t, err)
	_, err = reg.Connect(protocol.ConnectRequest{Hostname: "h3", Port: 3, GroupID: "g3", SupportedTypes: []resource.Type{resource.Audio}})
	require.NoError(t, err)

	targets := RouteSearch(protocol.SearchRequest{Types: []resource.Type{resource.Page}}, reg.Snapshot())
	assert.ElementsMatch(t, []string{k1, k2}, targets)
}

func TestRouteSearchUnsupportedTypeEmpty(t *testing.T) {
	reg := registry.New()
	_, err := reg.Connect(protocol.ConnectRequest{Hostname: "h1", Port: 1, SupportedTypes: []resource.Type{resource.Page}})
	require.NoError(t, err)

	targets := RouteSearch(protocol.SearchRequest{Types: []resource.Type{resource.Audio}}, reg.Snapshot())
	assert.Empty(t, targets)
}

func TestRouteTransformGroupScoped(t *testing.T) {
	reg := registry.New()
	k1, err := reg.Connect(protocol.ConnectRequest{Hostname: "h1", Port: 1, GroupID: "g", SupportedTypes: []resource.Type{resource.Person}})
	require.NoError(t, err)
	_, err = reg.Connect(protocol.ConnectRequest{Hostname: "h2", Port: 2, GroupID: "h", SupportedTypes: []resource.Type{resource.Person}})
	require.NoError(t, err)

	req := protocol.TransformRequest{
		Kind:     protocol.OccurAsObj,
		FromType: resource.Person,
		ID:       protocol.AccessIdentifier{ResourceID: k1},
	}
	targets, err := RouteTransform(req, reg.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{k1}, targets, "the other group's member must not be called")
}

func TestRouteTransformUnknownResource(t *testing.T) {
	reg := registry.New()
	req := protocol.TransformRequest{Kind: protocol.OccurAsObj, FromType: resource.Person, ID: protocol.AccessIdentifier{ResourceID: "ZZZZ"}}
	_, err := RouteTransform(req, reg.Snapshot())
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestRouteContentsTransformUsesToType(t *testing.T) {
	reg := registry.New()
	k1, err := reg.Connect(protocol.ConnectRequest{Hostname: "h1", Port: 1, GroupID: "g", SupportedTypes: []resource.Type{resource.Collection, resource.Page}})
	require.NoError(t, err)

	req := protocol.TransformRequest{
		Kind: protocol.ContentsTransform, FromType: resource.Collection, ToType: resource.Page,
		ID: protocol.AccessIdentifier{ResourceID: k1},
	}
	targets, err := RouteTransform(req, reg.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{k1}, targets)
}

func TestRouteNearbyLocationsTargetsLocationSupporters(t *testing.T) {
	reg := registry.New()
	k1, err := reg.Connect(protocol.ConnectRequest{Hostname: "h1", Port: 1, GroupID: "g", SupportedTypes: []resource.Type{resource.Picture}})
	require.NoError(t, err)
	k2, err := reg.Connect(protocol.ConnectRequest{Hostname: "h2", Port: 2, GroupID: "g", SupportedTypes: []resource.Type{resource.Location}})
	require.NoError(t, err)

	req := protocol.TransformRequest{Kind: protocol.NearbyLocations, ID: protocol.AccessIdentifier{ResourceID: k1}}
	targets, err := RouteTransform(req, reg.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{k2}, targets)
}

func TestRouteDynamicTransformMatchesNameAndFromType(t *testing.T) {
	reg := registry.New()
	dt := protocol.DynamicTransformID{Name: "translate", FromType: resource.Page}
	k1, err := reg.Connect(protocol.ConnectRequest{
		Hostname: "h1", Port: 1, GroupID: "g",
		SupportedTypes:    []resource.Type{resource.Page},
		DynamicTransforms: []protocol.DynamicTransformID{dt},
	})
	require.NoError(t, err)

	req := protocol.TransformRequest{Kind: protocol.DynamicTransform, TransformID: dt, ID: protocol.AccessIdentifier{ResourceID: k1}}
	targets, err := RouteTransform(req, reg.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{k1}, targets)

	otherDT := protocol.DynamicTransformID{Name: "translate", FromType: resource.Picture}
	req.TransformID = otherDT
	targets, err = RouteTransform(req, reg.Snapshot())
	require.NoError(t, err)
	assert.Empty(t, targets, "overloaded name with different fromType must not match")
}

func TestRouteLookupSingleton(t *testing.T) {
	reg := registry.New()
	k1, err := reg.Connect(protocol.ConnectRequest{Hostname: "h1", Port: 1, SupportedTypes: []resource.Type{resource.Page}})
	require.NoError(t, err)

	targets := RouteLookup(protocol.AccessIdentifier{ResourceID: k1}, reg.Snapshot())
	assert.Equal(t, []string{k1}, targets)

	targets = RouteLookup(protocol.AccessIdentifier{ResourceID: "ZZZZ"}, reg.Snapshot())
	assert.Empty(t, targets)
}
