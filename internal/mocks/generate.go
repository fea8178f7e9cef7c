package mocks

//go:generate mockery --name EventStore --srcpkg github.com/aevon-lab/storefront-insights/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name DimensionStore --srcpkg github.com/aevon-lab/storefront-insights/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name ViewStateStore --srcpkg github.com/aevon-lab/storefront-insights/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
