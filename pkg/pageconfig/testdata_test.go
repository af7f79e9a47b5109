package pageconfig

// blogConfig is a small application: a global renderer, a home page, a blog
// page overriding the renderer's onRenderClient, and an error page.
const blogConfig = `
configFiles:
  - location: /renderer
    configs:
      onRenderHtml: { code: /renderer/+onRenderHtml.js }
      onRenderClient: { code: /renderer/+onRenderClient.js }
      passToClient: { value: [pageProps, title] }
      Layout: { code: /renderer/+Layout.jsx }
  - location: /pages/index
    configs:
      Page: { code: /pages/index/+Page.jsx }
      route: /
  - location: /pages/blog
    configs:
      Page: { code: /pages/blog/+Page.jsx }
      data: { code: /pages/blog/+data.js, env: server-only }
      route: /blog/:slug
      onRenderClient: { code: /pages/blog/+onRenderClient.js }
      title: { value: Blog }
  - location: /pages/_error
    configs:
      Page: { code: /pages/_error/+Page.jsx }
`
