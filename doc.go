// Package flowmesh 提供分布式数据流的通道多路复用传输层
//
// FlowMesh 把任意数量的逻辑数据通道复用到固定规模的节点网格上：
// 每对节点之间只维持一条 TCP 连接，数据块带帧头发送，
// 入向数据按通道 ID 解复用进对应的缓冲链。
//
// # 核心概念
//
// FlowMesh 围绕三个核心概念构建：
//
//   - Worker: 集群中的一个工作节点，用户交互的主入口
//   - Channel: 逻辑数据通道，全集群按相同顺序分配 ID
//   - BufferChain: 单通道的接收缓冲，按到达顺序累积数据块
//
// # 快速开始
//
//	import "github.com/flowmesh/go-flowmesh"
//
//	// 1. 创建并启动工作节点
//	worker, err := flowmesh.New(
//	    flowmesh.WithRank(0),
//	    flowmesh.WithPeers("10.0.0.1:9000", "10.0.0.2:9000"),
//	    flowmesh.WithRunID(runID),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := worker.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer worker.Close()
//
//	// 2. 打开通道发送
//	id, _ := worker.AllocateNext()
//	emitters, _ := worker.OpenChannel(id)
//	for _, e := range emitters {
//	    e.Emit([]byte("block"))
//	    e.Close()
//	}
//
//	// 3. 读取接收缓冲
//	chain, _ := worker.AccessData(id)
//	<-chain.Done()
//	for _, block := range chain.Blocks() {
//	    process(block)
//	}
//
// # 文件组织
//
// 本包按功能领域组织代码：
//
//	flowmesh/
//	├── flowmesh.go           # 版本信息、运行标识
//	├── worker.go             # Worker 结构、生命周期、交换层门面
//	├── options.go            # WithXxx 配置选项
//	├── fx.go                 # Fx 应用组装
//	└── errors.go             # 错误定义与再导出
//
// # 架构层次
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  1. API Layer                                               │
//	│     flowmesh.New(), Worker                                  │
//	│     用户入口，配置选项                                        │
//	├─────────────────────────────────────────────────────────────┤
//	│  2. Exchange Layer                                          │
//	│     Multiplexer, Channel, BufferChain, BlockEmitter         │
//	│     通道复用与解复用                                          │
//	├─────────────────────────────────────────────────────────────┤
//	│  3. Dispatch Layer                                          │
//	│     Dispatcher（定序器 + 每连接写队列）                       │
//	│     异步读写与回调定序                                        │
//	├─────────────────────────────────────────────────────────────┤
//	│  4. Group Layer                                             │
//	│     TCP 全网格建组、内存节点组                                │
//	│     固定成员表，按序号互连                                    │
//	└─────────────────────────────────────────────────────────────┘
//
// # 预设配置
//
// FlowMesh 提供三种预设配置：
//
//	"local"    单机测试，小块上限、快速失败
//	"cluster"  多机集群，宽松超时、Prometheus 导出
//	"bench"    压测，大块上限、关闭告警噪音
//
// 更多信息请访问: https://github.com/flowmesh/go-flowmesh
package flowmesh
