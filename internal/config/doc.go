// Package config provides project configuration for ssrpages.
//
// The configuration is stored in ssrpages.json at the project root. Values
// from a .env file next to it and from SSRPAGES_* environment variables
// override the file; the process environment wins over .env.
//
// # Configuration File Structure
//
//	{
//	  "name": "blog",
//	  "pages": "pages.yaml",
//	  "scripts": "routes",
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "origin": "https://blog.example.com"
//	  },
//	  "build": {
//	    "production": true,
//	    "manifest": "dist/manifest.json",
//	    "assetsPrefix": "/assets/",
//	    "includeAssetsImportedByServer": true,
//	    "s3": {"bucket": "blog-assets", "prefix": "v12/", "region": "eu-west-1"}
//	  },
//	  "client": {"passToClient": ["pageProps", "urlPathname", "title"]},
//	  "dev": {"watch": ["pages.yaml", "routes"], "reloadPath": "/__ssrpages/reload"},
//	  "metrics": {"enabled": true, "namespace": "blog"}
//	}
//
// # Environment Overrides
//
//	SSRPAGES_HOST, SSRPAGES_PORT, SSRPAGES_ORIGIN, SSRPAGES_PAGES,
//	SSRPAGES_PRODUCTION, SSRPAGES_S3_BUCKET, SSRPAGES_S3_PREFIX,
//	SSRPAGES_S3_REGION, SSRPAGES_ASSETS_URL
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
